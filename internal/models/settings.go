package models

import "time"

// Settings holds the education management settings used by the merit
// process. A single row is stored; DefaultSettings applies when none exists.
type Settings struct {
	EnableMeritListProcess                bool      `json:"enable_merit_list_process"`
	MeritListMandatory                    bool      `json:"merit_list_mandatory"`
	MeritValidationRequired               bool      `json:"merit_validation_required"`
	DocumentUploadMandatory               bool      `json:"document_upload_mandatory"`
	AutoApproveIfDocumentsVerified        bool      `json:"auto_approve_if_documents_verified"`
	DefaultMinimumMeritScore              float64   `json:"default_minimum_merit_score"`
	MaxFileSizeMB                         int       `json:"max_file_size_mb"`
	EnableCategoryWiseRanking             bool      `json:"enable_category_wise_ranking"`
	EnableProgramWiseRanking              bool      `json:"enable_program_wise_ranking"`
	AutoGenerateRankings                  bool      `json:"auto_generate_rankings"`
	NotifyOnSubmission                    bool      `json:"notify_on_submission"`
	NotifyOnValidation                    bool      `json:"notify_on_validation"`
	ValidationReminderDays                int       `json:"validation_reminder_days"`
	AllowScoreModificationAfterValidation bool      `json:"allow_score_modification_after_validation"`
	UpdatedAt                             time.Time `json:"updated_at,omitempty"`
}

// DefaultSettings returns the settings used before any are saved.
func DefaultSettings() Settings {
	return Settings{
		EnableMeritListProcess:         true,
		MeritListMandatory:             false,
		MeritValidationRequired:        true,
		DocumentUploadMandatory:        true,
		AutoApproveIfDocumentsVerified: false,
		DefaultMinimumMeritScore:       0,
		MaxFileSizeMB:                  10,
		EnableCategoryWiseRanking:      true,
		EnableProgramWiseRanking:       true,
		AutoGenerateRankings:           true,
		NotifyOnSubmission:             true,
		NotifyOnValidation:             true,
		ValidationReminderDays:         3,
	}
}
