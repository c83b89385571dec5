package verify

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"amalajoint/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	stores map[int64]*store.Store
	byRef  map[string]int64
}

func newFakeRepo(stores ...*store.Store) *fakeRepo {
	repo := &fakeRepo{
		stores: map[int64]*store.Store{},
		byRef:  map[string]int64{},
	}
	for _, s := range stores {
		repo.stores[s.ID] = s
		repo.byRef[s.PlaceID] = s.ID
	}
	return repo
}

func (r *fakeRepo) GetByRef(_ context.Context, ref string) (*store.Store, error) {
	id, ok := r.byRef[ref]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *r.stores[id]
	return &copied, nil
}

func (r *fakeRepo) AppendVerification(_ context.Context, storeID int64, req store.VerificationRequest) (*store.Store, error) {
	s, ok := r.stores[storeID]
	if !ok {
		return nil, store.ErrNotFound
	}
	s.VerificationRequests = append(s.VerificationRequests, req)
	s.VerifyCount++
	copied := *s
	return &copied, nil
}

func (r *fakeRepo) MarkVerified(_ context.Context, storeID int64) error {
	s, ok := r.stores[storeID]
	if !ok {
		return store.ErrNotFound
	}
	s.IsVerified = true
	return nil
}

type fakeJudge struct {
	verdict string
	err     error
	prompts []string
}

func (j *fakeJudge) Evaluate(_ context.Context, prompt string) (string, error) {
	j.prompts = append(j.prompts, prompt)
	return j.verdict, j.err
}

type fakeUploader struct {
	url string
	err error
}

func (u *fakeUploader) Upload(context.Context, io.Reader, string) (string, string, error) {
	return u.url, "public-id", u.err
}

func testStore() *store.Store {
	return &store.Store{
		ID:          1,
		PlaceID:     "amala_abc123def456",
		Name:        "Iya Basira Amala",
		Location:    "12 Allen Avenue, Ikeja, Lagos",
		Description: "Best amala in Ikeja",
	}
}

func submission() Submission {
	return Submission{
		StoreRef:    "amala_abc123def456",
		Reason:      "I ate here last week, the amala is real",
		ProofURL:    "https://example.com/receipt.jpg",
		SubmitterID: 7,
	}
}

func TestSubmitValidation(t *testing.T) {
	svc := NewService(newFakeRepo(testStore()), nil, nil, zap.NewNop().Sugar())

	sub := submission()
	sub.Reason = "  "
	_, err := svc.Submit(context.Background(), sub)
	assert.ErrorIs(t, err, ErrReasonRequired)

	sub = submission()
	sub.ProofURL = ""
	_, err = svc.Submit(context.Background(), sub)
	assert.ErrorIs(t, err, ErrProofRequired)
}

func TestSubmitUnknownStore(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil, zap.NewNop().Sugar())

	sub := submission()
	_, err := svc.Submit(context.Background(), sub)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestApprovalBelowThresholdDoesNotVerify(t *testing.T) {
	repo := newFakeRepo(testStore())
	judge := &fakeJudge{verdict: "APPROVE - proof checks out"}
	svc := NewService(repo, judge, nil, zap.NewNop().Sugar())

	for i := 0; i < 2; i++ {
		result, err := svc.Submit(context.Background(), submission())
		require.NoError(t, err)
		assert.Equal(t, store.VerificationApproved, result.Status)
	}

	s := repo.stores[1]
	assert.False(t, s.IsVerified)
	assert.Equal(t, 2, s.VerifyCount)
	assert.Len(t, s.VerificationRequests, 2)
}

func TestThirdApprovalVerifies(t *testing.T) {
	repo := newFakeRepo(testStore())
	judge := &fakeJudge{verdict: "APPROVE - proof checks out"}
	svc := NewService(repo, judge, nil, zap.NewNop().Sugar())

	for i := 0; i < 3; i++ {
		_, err := svc.Submit(context.Background(), submission())
		require.NoError(t, err)
	}

	assert.True(t, repo.stores[1].IsVerified)
	assert.Equal(t, 3, repo.stores[1].VerifyCount)
}

func TestRejectionsCountSubmissionsButNeverVerify(t *testing.T) {
	repo := newFakeRepo(testStore())
	judge := &fakeJudge{verdict: "REJECT - proof url is a cat picture"}
	svc := NewService(repo, judge, nil, zap.NewNop().Sugar())

	for i := 0; i < 5; i++ {
		result, err := svc.Submit(context.Background(), submission())
		require.NoError(t, err)
		assert.Equal(t, store.VerificationRejected, result.Status)
	}

	s := repo.stores[1]
	assert.False(t, s.IsVerified)
	assert.Equal(t, 5, s.VerifyCount)
	assert.Equal(t, 0, s.ApprovedRequests())
}

func TestMixedVerdictsVerifyOnThirdApproval(t *testing.T) {
	repo := newFakeRepo(testStore())
	judge := &fakeJudge{}
	svc := NewService(repo, judge, nil, zap.NewNop().Sugar())

	verdicts := []string{
		"APPROVE - solid proof",
		"REJECT - not convincing",
		"APPROVE - solid proof",
		"APPROVE - solid proof",
	}
	for i, verdict := range verdicts {
		judge.verdict = verdict
		_, err := svc.Submit(context.Background(), submission())
		require.NoError(t, err)

		s := repo.stores[1]
		if i < 3 {
			assert.False(t, s.IsVerified, "should not be verified after submission %d", i+1)
		}
	}

	s := repo.stores[1]
	assert.True(t, s.IsVerified)
	assert.Equal(t, 4, s.VerifyCount)
	assert.Equal(t, 3, s.ApprovedRequests())
}

func TestApproveMatchIsCaseInsensitive(t *testing.T) {
	repo := newFakeRepo(testStore())
	judge := &fakeJudge{verdict: "I would approve this request, the proof is credible."}
	svc := NewService(repo, judge, nil, zap.NewNop().Sugar())

	result, err := svc.Submit(context.Background(), submission())
	require.NoError(t, err)
	assert.Equal(t, store.VerificationApproved, result.Status)
}

func TestJudgeErrorFailsOpen(t *testing.T) {
	repo := newFakeRepo(testStore())
	judge := &fakeJudge{err: errors.New("upstream 503")}
	svc := NewService(repo, judge, nil, zap.NewNop().Sugar())

	result, err := svc.Submit(context.Background(), submission())
	require.NoError(t, err)
	assert.Equal(t, store.VerificationApproved, result.Status)
	assert.Equal(t, "APPROVE - AI agent error, auto-approved", result.AIEvaluation)
}

func TestNilJudgeFailsOpen(t *testing.T) {
	repo := newFakeRepo(testStore())
	svc := NewService(repo, nil, nil, zap.NewNop().Sugar())

	result, err := svc.Submit(context.Background(), submission())
	require.NoError(t, err)
	assert.Equal(t, store.VerificationApproved, result.Status)
	assert.Equal(t, "APPROVE - AI agent not available, auto-approved", result.AIEvaluation)
}

func TestEvaluationPromptCarriesStoreAndEvidence(t *testing.T) {
	repo := newFakeRepo(testStore())
	judge := &fakeJudge{verdict: "REJECT - nope"}
	svc := NewService(repo, judge, nil, zap.NewNop().Sugar())

	_, err := svc.Submit(context.Background(), submission())
	require.NoError(t, err)

	require.Len(t, judge.prompts, 1)
	prompt := judge.prompts[0]
	assert.Contains(t, prompt, "Iya Basira Amala")
	assert.Contains(t, prompt, "12 Allen Avenue, Ikeja, Lagos")
	assert.Contains(t, prompt, "https://example.com/receipt.jpg")
}

func TestUploadFailureAbortsSubmission(t *testing.T) {
	repo := newFakeRepo(testStore())
	uploader := &fakeUploader{err: errors.New("host down")}
	svc := NewService(repo, nil, uploader, zap.NewNop().Sugar())

	sub := submission()
	sub.Image = strings.NewReader("jpeg bytes")
	_, err := svc.Submit(context.Background(), sub)

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Empty(t, repo.stores[1].VerificationRequests)
	assert.Equal(t, 0, repo.stores[1].VerifyCount)
}

func TestUploadedImageURLRecorded(t *testing.T) {
	repo := newFakeRepo(testStore())
	uploader := &fakeUploader{url: "https://images.example.com/proof.jpg"}
	svc := NewService(repo, nil, uploader, zap.NewNop().Sugar())

	sub := submission()
	sub.Image = strings.NewReader("jpeg bytes")
	_, err := svc.Submit(context.Background(), sub)
	require.NoError(t, err)

	requests := repo.stores[1].VerificationRequests
	require.Len(t, requests, 1)
	require.NotNil(t, requests[0].ImageURL)
	assert.Equal(t, "https://images.example.com/proof.jpg", *requests[0].ImageURL)
}

func TestImageWithoutUploaderRejected(t *testing.T) {
	repo := newFakeRepo(testStore())
	svc := NewService(repo, nil, nil, zap.NewNop().Sugar())

	sub := submission()
	sub.Image = strings.NewReader("jpeg bytes")
	_, err := svc.Submit(context.Background(), sub)

	var uploadErr *UploadError
	assert.ErrorAs(t, err, &uploadErr)
}
