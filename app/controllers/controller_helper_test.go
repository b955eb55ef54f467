package controllers

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/haulbound/billing/internal/pkg/billing"
	"github.com/stretchr/testify/assert"
)

func TestStatusForError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kind billing.ErrorKind
		want int
	}{
		{name: "not found", kind: billing.ErrorNotFound, want: fiber.StatusNotFound},
		{name: "validation", kind: billing.ErrorValidation, want: fiber.StatusBadRequest},
		{name: "conflict", kind: billing.ErrorConflict, want: fiber.StatusConflict},
		{name: "too many requests", kind: billing.ErrorTooManyRequests, want: fiber.StatusTooManyRequests},
		{name: "other", kind: billing.ErrorOther, want: fiber.StatusInternalServerError},
		{name: "unclassified", kind: billing.ErrorKind("surprise"), want: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, statusForError(tt.kind))
		})
	}
}

func TestStatusForSuccess(t *testing.T) {
	t.Parallel()

	assert.Equal(t, fiber.StatusOK, statusForSuccess(billing.StatusOK))
	assert.Equal(t, fiber.StatusCreated, statusForSuccess(billing.StatusCreated))
}
