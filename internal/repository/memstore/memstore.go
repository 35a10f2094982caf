// Package memstore is an in-memory implementation of the repository
// interfaces. Services and handlers are tested against it.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ngavde/education-management/internal/merit"
	"github.com/ngavde/education-management/internal/models"
	"github.com/ngavde/education-management/internal/repository"
)

// Store holds all records behind one mutex
type Store struct {
	mu          sync.Mutex
	txMu        sync.Mutex
	seq         int64
	submissions map[uuid.UUID]models.MeritScoreSubmission
	validations map[uuid.UUID]models.MeritScoreValidation
	tools       map[uuid.UUID]models.MeritListTool
	users       map[uuid.UUID]models.User
	settings    *models.Settings

	// FailNext makes the next write return this error, then resets.
	FailNext error
}

// New creates an empty store
func New() *Store {
	return &Store{
		submissions: make(map[uuid.UUID]models.MeritScoreSubmission),
		validations: make(map[uuid.UUID]models.MeritScoreValidation),
		tools:       make(map[uuid.UUID]models.MeritListTool),
		users:       make(map[uuid.UUID]models.User),
	}
}

// Repositories returns the repository set backed by the store
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Submissions: &submissionRepo{s},
		Validations: &validationRepo{s},
		MeritLists:  &meritListRepo{s},
		Settings:    &settingsRepo{s},
		User:        &userRepo{s},
		Tx:          &txManager{s},
	}
}

func (s *Store) failed() error {
	err := s.FailNext
	s.FailNext = nil
	return err
}

type snapshot struct {
	seq         int64
	submissions map[uuid.UUID]models.MeritScoreSubmission
	validations map[uuid.UUID]models.MeritScoreValidation
	tools       map[uuid.UUID]models.MeritListTool
	users       map[uuid.UUID]models.User
	settings    *models.Settings
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		seq:         s.seq,
		submissions: make(map[uuid.UUID]models.MeritScoreSubmission, len(s.submissions)),
		validations: make(map[uuid.UUID]models.MeritScoreValidation, len(s.validations)),
		tools:       make(map[uuid.UUID]models.MeritListTool, len(s.tools)),
		users:       make(map[uuid.UUID]models.User, len(s.users)),
	}
	for k, v := range s.submissions {
		snap.submissions[k] = cloneSubmission(v)
	}
	for k, v := range s.validations {
		snap.validations[k] = v
	}
	for k, v := range s.tools {
		snap.tools[k] = cloneTool(v)
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	if s.settings != nil {
		cp := *s.settings
		snap.settings = &cp
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = snap.seq
	s.submissions = snap.submissions
	s.validations = snap.validations
	s.tools = snap.tools
	s.users = snap.users
	s.settings = snap.settings
}

type txManager struct{ s *Store }

// WithTransaction serializes transactions and rolls the store back when fn
// fails
func (t *txManager) WithTransaction(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	snap := t.s.snapshot()
	if err := fn(t.s.Repositories()); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}

func cloneSubmission(v models.MeritScoreSubmission) models.MeritScoreSubmission {
	v.SubjectScores = append([]models.SubjectScore(nil), v.SubjectScores...)
	if v.SubmissionDate != nil {
		d := *v.SubmissionDate
		v.SubmissionDate = &d
	}
	if v.ValidationDate != nil {
		d := *v.ValidationDate
		v.ValidationDate = &d
	}
	return v
}

func cloneTool(v models.MeritListTool) models.MeritListTool {
	if v.Results != nil {
		v.Results = append([]models.MeritListEntry{}, v.Results...)
	}
	if v.GeneratedAt != nil {
		d := *v.GeneratedAt
		v.GeneratedAt = &d
	}
	return v
}

// PutSubmission stores a submission as-is. Used to seed tests.
func (s *Store) PutSubmission(sub models.MeritScoreSubmission) models.MeritScoreSubmission {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.Name == "" {
		s.seq++
		sub.Name = fmt.Sprintf("EDU-MRT-%d-%05d", time.Now().Year(), s.seq)
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = sub.CreatedAt
	}
	s.submissions[sub.ID] = cloneSubmission(sub)
	return sub
}

// Submission returns a copy of a stored submission
func (s *Store) Submission(id uuid.UUID) (models.MeritScoreSubmission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.submissions[id]
	return cloneSubmission(v), ok
}

type submissionRepo struct{ s *Store }

func (r *submissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.MeritScoreSubmission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.submissions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := cloneSubmission(v)
	return &cp, nil
}

func (r *submissionRepo) GetByName(ctx context.Context, name string) (*models.MeritScoreSubmission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.submissions {
		if v.Name == name {
			cp := cloneSubmission(v)
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *submissionRepo) Create(ctx context.Context, sub *models.MeritScoreSubmission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed(); err != nil {
		return err
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	now := time.Now()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	if sub.Name == "" {
		r.s.seq++
		sub.Name = fmt.Sprintf("EDU-MRT-%d-%05d", now.Year(), r.s.seq)
	}
	for _, v := range r.s.submissions {
		if v.Name == sub.Name {
			return fmt.Errorf("submission %s: %w", sub.Name, repository.ErrDuplicate)
		}
	}
	for i := range sub.SubjectScores {
		if sub.SubjectScores[i].ID == uuid.Nil {
			sub.SubjectScores[i].ID = uuid.New()
		}
	}
	r.s.submissions[sub.ID] = cloneSubmission(*sub)
	return nil
}

func (r *submissionRepo) Update(ctx context.Context, sub *models.MeritScoreSubmission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed(); err != nil {
		return err
	}
	cur, ok := r.s.submissions[sub.ID]
	if !ok || cur.DocStatus == models.DocStatusCancelled {
		return repository.ErrStaleState
	}
	sub.UpdatedAt = time.Now()
	for i := range sub.SubjectScores {
		if sub.SubjectScores[i].ID == uuid.Nil {
			sub.SubjectScores[i].ID = uuid.New()
		}
	}

	// Only the editable columns are written, like the SQL update.
	cur.StudentApplicant = sub.StudentApplicant
	cur.ApplicantName = sub.ApplicantName
	cur.ApplicantEmail = sub.ApplicantEmail
	cur.AcademicYear = sub.AcademicYear
	cur.Program = sub.Program
	cur.StudentCategory = sub.StudentCategory
	cur.TotalMeritScore = sub.TotalMeritScore
	cur.MaximumPossibleScore = sub.MaximumPossibleScore
	cur.PercentageScore = sub.PercentageScore
	cur.MeritGrade = sub.MeritGrade
	cur.SupportingDocuments = sub.SupportingDocuments
	cur.SubmissionDate = sub.SubmissionDate
	cur.TeacherComments = sub.TeacherComments
	cur.AdminRemarks = sub.AdminRemarks
	cur.SubjectScores = sub.SubjectScores
	cur.UpdatedAt = sub.UpdatedAt
	r.s.submissions[sub.ID] = cloneSubmission(cur)
	return nil
}

func (r *submissionRepo) sorted(keep func(*models.MeritScoreSubmission) bool) []models.MeritScoreSubmission {
	out := []models.MeritScoreSubmission{}
	for _, v := range r.s.submissions {
		if keep(&v) {
			out = append(out, cloneSubmission(v))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Name > out[j].Name
	})
	return out
}

func (r *submissionRepo) List(ctx context.Context, f repository.SubmissionFilter) ([]models.MeritScoreSubmission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.sorted(func(v *models.MeritScoreSubmission) bool {
		switch {
		case f.AcademicYear != "" && v.AcademicYear != f.AcademicYear,
			f.Program != "" && v.Program != f.Program,
			f.StudentApplicant != "" && v.StudentApplicant != f.StudentApplicant,
			f.DocStatus != nil && v.DocStatus != *f.DocStatus,
			f.ValidationStatus != "" && v.ValidationStatus != f.ValidationStatus:
			return false
		}
		return true
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []models.MeritScoreSubmission{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *submissionRepo) TransitionDocStatus(ctx context.Context, id uuid.UUID, t repository.DocTransition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed(); err != nil {
		return err
	}
	cur, ok := r.s.submissions[id]
	if !ok || cur.DocStatus != t.From {
		return repository.ErrStaleState
	}
	cur.DocStatus = t.To
	cur.SubmissionStatus = t.SubmissionStatus
	if t.SubmissionDate != nil {
		d := *t.SubmissionDate
		cur.SubmissionDate = &d
	}
	cur.UpdatedAt = t.UpdatedAt
	r.s.submissions[id] = cur
	return nil
}

func (r *submissionRepo) ApplyValidation(ctx context.Context, id uuid.UUID, u repository.ValidationUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed(); err != nil {
		return err
	}
	cur, ok := r.s.submissions[id]
	if !ok || cur.DocStatus != models.DocStatusSubmitted || cur.ValidationStatus != models.ValidationPending {
		return repository.ErrStaleState
	}
	cur.ValidationStatus = u.Status
	cur.SubmissionStatus = u.SubmissionStatus
	if u.VerifyDocuments && cur.DocumentVerificationStatus == models.DocumentPending {
		cur.DocumentVerificationStatus = models.DocumentVerified
	}
	cur.ValidatedBy = u.ValidatedBy
	d := u.ValidationDate
	cur.ValidationDate = &d
	if u.AdminRemarks != nil {
		cur.AdminRemarks = *u.AdminRemarks
	}
	cur.UpdatedAt = u.ValidationDate
	r.s.submissions[id] = cur
	return nil
}

func (r *submissionRepo) ApplyDocumentVerification(ctx context.Context, id uuid.UUID, status models.DocumentVerificationStatus, updatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed(); err != nil {
		return err
	}
	cur, ok := r.s.submissions[id]
	if !ok || cur.DocStatus != models.DocStatusSubmitted || cur.DocumentVerificationStatus != models.DocumentPending {
		return repository.ErrStaleState
	}
	cur.DocumentVerificationStatus = status
	cur.UpdatedAt = updatedAt
	r.s.submissions[id] = cur
	return nil
}

func (r *submissionRepo) OverrideScore(ctx context.Context, id uuid.UUID, total, percentage float64, grade models.Grade) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.submissions[id]
	if !ok {
		return repository.ErrNotFound
	}
	cur.TotalMeritScore = total
	cur.PercentageScore = percentage
	cur.MeritGrade = grade
	cur.UpdatedAt = time.Now()
	r.s.submissions[id] = cur
	return nil
}

func (r *submissionRepo) ListCandidates(ctx context.Context, academicYear string) ([]models.MeritScoreSubmission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(v *models.MeritScoreSubmission) bool {
		return v.AcademicYear == academicYear && v.IsSubmitted() && v.ValidationStatus != models.ValidationRejected
	}), nil
}

func (r *submissionRepo) ListAcademicYears(ctx context.Context) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := map[string]bool{}
	var years []string
	for _, v := range r.s.submissions {
		if v.IsSubmitted() && !seen[v.AcademicYear] {
			seen[v.AcademicYear] = true
			years = append(years, v.AcademicYear)
		}
	}
	sort.Strings(years)
	return years, nil
}

func (r *submissionRepo) UpdateRanks(ctx context.Context, academicYear, program string, ranks []merit.RankAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed(); err != nil {
		return err
	}
	for id, v := range r.s.submissions {
		if v.AcademicYear == academicYear && (program == "" || v.Program == program) {
			v.MeritRank, v.CategoryRank = 0, 0
			r.s.submissions[id] = v
		}
	}
	for _, rank := range ranks {
		v, ok := r.s.submissions[rank.SubmissionID]
		if !ok {
			continue
		}
		v.MeritRank, v.CategoryRank = rank.MeritRank, rank.CategoryRank
		r.s.submissions[rank.SubmissionID] = v
	}
	return nil
}

func (r *submissionRepo) Counts(ctx context.Context) (repository.SubmissionCounts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var c repository.SubmissionCounts
	for _, v := range r.s.submissions {
		if !v.IsSubmitted() {
			continue
		}
		c.Submitted++
		switch v.ValidationStatus {
		case models.ValidationPending:
			c.Pending++
		case models.ValidationValidated:
			c.Validated++
		case models.ValidationRejected:
			c.Rejected++
		}
	}
	return c, nil
}

func (r *submissionRepo) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.MeritScoreSubmission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.sorted(func(v *models.MeritScoreSubmission) bool {
		at := v.CreatedAt
		if v.SubmissionDate != nil {
			at = *v.SubmissionDate
		}
		return v.IsSubmitted() && v.ValidationStatus == models.ValidationPending && at.Before(cutoff)
	})
	return out, nil
}

func (r *submissionRepo) HasSubmitted(ctx context.Context, studentApplicant string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.submissions {
		if v.StudentApplicant == studentApplicant && v.IsSubmitted() {
			return true, nil
		}
	}
	return false, nil
}

type validationRepo struct{ s *Store }

func (r *validationRepo) fill(v models.MeritScoreValidation) models.MeritScoreValidation {
	if sub, ok := r.s.submissions[v.MeritSubmissionID]; ok {
		v.MeritSubmission = sub.Name
		v.ApplicantName = sub.ApplicantName
	}
	return v
}

func (r *validationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.MeritScoreValidation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.validations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	v = r.fill(v)
	return &v, nil
}

func (r *validationRepo) GetBySubmission(ctx context.Context, submissionID uuid.UUID) (*models.MeritScoreValidation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.validations {
		if v.MeritSubmissionID == submissionID {
			v = r.fill(v)
			return &v, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *validationRepo) Create(ctx context.Context, v *models.MeritScoreValidation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed(); err != nil {
		return err
	}
	for _, existing := range r.s.validations {
		if existing.MeritSubmissionID == v.MeritSubmissionID {
			return fmt.Errorf("validation record for %s: %w", v.MeritSubmission, repository.ErrDuplicate)
		}
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	now := time.Now()
	v.CreatedAt, v.UpdatedAt = now, now
	if v.ValidationDate.IsZero() {
		v.ValidationDate = now
	}
	r.s.validations[v.ID] = *v
	return nil
}

func (r *validationRepo) Update(ctx context.Context, v *models.MeritScoreValidation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed(); err != nil {
		return err
	}
	cur, ok := r.s.validations[v.ID]
	if !ok || cur.DocStatus != models.DocStatusDraft {
		return repository.ErrStaleState
	}
	v.UpdatedAt = time.Now()
	r.s.validations[v.ID] = *v
	return nil
}

func (r *validationRepo) DeleteDrafts(ctx context.Context, submissionID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, v := range r.s.validations {
		if v.MeritSubmissionID == submissionID && v.DocStatus == models.DocStatusDraft {
			delete(r.s.validations, id)
			n++
		}
	}
	return n, nil
}

func (r *validationRepo) ListOpen(ctx context.Context) ([]models.MeritScoreValidation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.MeritScoreValidation{}
	for _, v := range r.s.validations {
		if v.DocStatus == models.DocStatusDraft {
			out = append(out, r.fill(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type meritListRepo struct{ s *Store }

func (r *meritListRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.MeritListTool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.tools[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := cloneTool(v)
	return &cp, nil
}

func (r *meritListRepo) Create(ctx context.Context, tool *models.MeritListTool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed(); err != nil {
		return err
	}
	if tool.ID == uuid.Nil {
		tool.ID = uuid.New()
	}
	now := time.Now()
	tool.CreatedAt, tool.UpdatedAt = now, now
	r.s.tools[tool.ID] = cloneTool(*tool)
	return nil
}

func (r *meritListRepo) Update(ctx context.Context, tool *models.MeritListTool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed(); err != nil {
		return err
	}
	if _, ok := r.s.tools[tool.ID]; !ok {
		return repository.ErrNotFound
	}
	tool.UpdatedAt = time.Now()
	r.s.tools[tool.ID] = cloneTool(*tool)
	return nil
}

func (r *meritListRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tools[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.tools, id)
	return nil
}

func (r *meritListRepo) ListByOwner(ctx context.Context, owner uuid.UUID) ([]models.MeritListTool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.MeritListTool{}
	for _, v := range r.s.tools {
		if v.Owner == owner {
			out = append(out, cloneTool(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

type settingsRepo struct{ s *Store }

func (r *settingsRepo) Get(ctx context.Context) (*models.Settings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.settings == nil {
		return nil, repository.ErrNotFound
	}
	cp := *r.s.settings
	return &cp, nil
}

func (r *settingsRepo) Save(ctx context.Context, settings *models.Settings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed(); err != nil {
		return err
	}
	settings.UpdatedAt = time.Now()
	cp := *settings
	r.s.settings = &cp
	return nil
}

type userRepo struct{ s *Store }

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.users {
		if v.Email == email {
			return &v, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.users {
		if v.Email == user.Email {
			return fmt.Errorf("user %s: %w", user.Email, repository.ErrDuplicate)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	user.UpdatedAt = time.Now()
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}
