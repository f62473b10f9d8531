package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/samilink/backend/internal/models"
)

func TestResumeStatusFor_Explicit(t *testing.T) {
	selected := time.Now()
	explicit := models.RequestStatusInProgress

	got := resumeStatusFor(&models.Request{OfferSelectedAt: &selected}, &explicit)
	assert.Equal(t, models.RequestStatusInProgress, got)
}

func TestResumeStatusFor_OfferWasSelected(t *testing.T) {
	selected := time.Now()

	got := resumeStatusFor(&models.Request{OfferSelectedAt: &selected}, nil)
	assert.Equal(t, models.RequestStatusAgreementPending, got)
}

func TestResumeStatusFor_NeverSelected(t *testing.T) {
	got := resumeStatusFor(&models.Request{}, nil)
	assert.Equal(t, models.RequestStatusNew, got)
}
