package validation

import (
	"errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Number string `json:"processNumber" binding:"required"`
	Status string `json:"status" binding:"omitempty,processstatus"`
	Doc    string `json:"documentStatus" binding:"omitempty,docstatus"`
	Type   string `json:"documentType" binding:"omitempty,doctype"`
	Date   string `json:"startDate" binding:"omitempty,isodate"`
}

func TestRegisteredTags(t *testing.T) {
	Register()
	Register()

	ok := sample{Number: "IMP-1", Status: "open", Doc: "processing", Type: "bill_of_lading", Date: "2026-03-01"}
	assert.NoError(t, binding.Validator.ValidateStruct(&ok))

	tests := []struct {
		name string
		in   sample
		msg  string
	}{
		{"missing number", sample{}, "processNumber is required"},
		{"process status", sample{Number: "x", Status: "shipped"}, "status has an unknown status"},
		{"doc status", sample{Number: "x", Doc: "done"}, "documentStatus has an unknown status"},
		{"doc type", sample{Number: "x", Type: "visa"}, "documentType is not a known document type"},
		{"date", sample{Number: "x", Date: "01/03/2026"}, "startDate must be a YYYY-MM-DD date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(&tt.in)
			assert.Error(t, err)
			assert.Equal(t, tt.msg, Message(err))
		})
	}
}

func TestMessageNonValidationError(t *testing.T) {
	assert.Equal(t, "invalid request body", Message(errors.New("unexpected EOF")))
}
