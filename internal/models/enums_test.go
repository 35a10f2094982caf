package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocStatusString(t *testing.T) {
	assert.Equal(t, "Draft", DocStatusDraft.String())
	assert.Equal(t, "Submitted", DocStatusSubmitted.String())
	assert.Equal(t, "Cancelled", DocStatusCancelled.String())
	assert.Equal(t, "DocStatus(7)", DocStatus(7).String())
	assert.False(t, DocStatus(7).Valid())
}

func TestParseValidationAction(t *testing.T) {
	action, err := ParseValidationAction("approve")
	assert.NoError(t, err)
	assert.Equal(t, ActionApprove, action)

	_, err = ParseValidationAction("Approve")
	assert.Error(t, err)
}

func TestParseDocumentDecision(t *testing.T) {
	status, err := ParseDocumentDecision("Rejected")
	assert.NoError(t, err)
	assert.Equal(t, DocumentRejected, status)

	_, err = ParseDocumentDecision("Pending")
	assert.Error(t, err, "Pending is not a decision")
}

func TestStatusValid(t *testing.T) {
	assert.True(t, ValidationValidated.Valid())
	assert.False(t, ValidationStatus("Under Review").Valid())
	assert.True(t, DocumentVerified.Valid())
	assert.False(t, DocumentVerificationStatus("").Valid())
}
