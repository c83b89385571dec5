// Package verify implements the crowd-sourced store verification workflow:
// each submission is adjudicated by an AI judge, appended to the store's
// permanent verification log, and a store becomes verified once three
// submissions have been approved.
package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"amalajoint/internal/store"

	"go.uber.org/zap"
)

// ApprovalThreshold is the number of approved requests that flips a store
// to verified.
const ApprovalThreshold = 3

var (
	ErrReasonRequired = errors.New("reason is required")
	ErrProofRequired  = errors.New("proof url is required")
)

// UploadError wraps an image host failure. The verification request is not
// recorded when the upload fails.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("image upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// StoreRepo is the slice of the repository the workflow needs. The append
// must be a single atomic mutation so concurrent submitters cannot lose
// each other's requests.
type StoreRepo interface {
	GetByRef(ctx context.Context, ref string) (*store.Store, error)
	AppendVerification(ctx context.Context, storeID int64, req store.VerificationRequest) (*store.Store, error)
	MarkVerified(ctx context.Context, storeID int64) error
}

// Judge returns a free-text verdict for an evaluation prompt. It is a
// heuristic oracle; any error triggers the fail-open policy.
type Judge interface {
	Evaluate(ctx context.Context, prompt string) (string, error)
}

// Uploader sends a submitted proof image to the external image host.
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, folder string) (url, publicID string, err error)
}

type Service struct {
	stores   StoreRepo
	judge    Judge
	uploader Uploader
	logger   *zap.SugaredLogger
}

// NewService builds the workflow. judge and uploader may be nil: a nil
// judge auto-approves per the fail-open policy, a nil uploader rejects
// submissions that carry an image.
func NewService(stores StoreRepo, judge Judge, uploader Uploader, logger *zap.SugaredLogger) *Service {
	return &Service{stores: stores, judge: judge, uploader: uploader, logger: logger}
}

type Submission struct {
	StoreRef    string
	Reason      string
	ProofURL    string
	Image       io.Reader // optional
	ImageURL    string    // used when the image was uploaded elsewhere
	SubmitterID int64
}

type Result struct {
	Status       string `json:"verification_status"`
	AIEvaluation string `json:"ai_evaluation"`
}

// Submit processes one verification attempt against a store.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Result, error) {
	if strings.TrimSpace(sub.Reason) == "" {
		return nil, ErrReasonRequired
	}
	if strings.TrimSpace(sub.ProofURL) == "" {
		return nil, ErrProofRequired
	}

	target, err := s.stores.GetByRef(ctx, sub.StoreRef)
	if err != nil {
		return nil, err
	}

	imageURL := sub.ImageURL
	if sub.Image != nil {
		if s.uploader == nil {
			return nil, &UploadError{Err: errors.New("image host not configured")}
		}
		url, _, err := s.uploader.Upload(ctx, sub.Image, "amala_verification")
		if err != nil {
			return nil, &UploadError{Err: err}
		}
		imageURL = url
	}

	evaluation := s.evaluate(ctx, target, sub)
	status := store.VerificationRejected
	if strings.Contains(strings.ToUpper(evaluation), "APPROVE") {
		status = store.VerificationApproved
	}

	request := store.VerificationRequest{
		Reason:       sub.Reason,
		ProofURL:     sub.ProofURL,
		SubmittedAt:  time.Now().UTC(),
		SubmittedBy:  sub.SubmitterID,
		AIEvaluation: evaluation,
		Status:       status,
	}
	if imageURL != "" {
		request.ImageURL = &imageURL
	}

	// verify_count counts submissions, approved or not; the approval
	// threshold below works off a fresh scan of the log instead.
	updated, err := s.stores.AppendVerification(ctx, target.ID, request)
	if err != nil {
		return nil, err
	}

	if status == store.VerificationApproved && updated.ApprovedRequests() >= ApprovalThreshold {
		// Setting is_verified twice under concurrent submissions is
		// harmless; the transition is one-way.
		if err := s.stores.MarkVerified(ctx, target.ID); err != nil {
			return nil, err
		}
		s.logger.Infow("store verified", "store_id", target.ID, "place_id", target.PlaceID)
	}

	return &Result{Status: status, AIEvaluation: evaluation}, nil
}

// evaluate asks the judge for a verdict. Judge outages fail open: the
// submission counts as approved so users are never blocked on an AI
// dependency being down.
func (s *Service) evaluate(ctx context.Context, target *store.Store, sub Submission) string {
	if s.judge == nil {
		return "APPROVE - AI agent not available, auto-approved"
	}

	prompt := fmt.Sprintf(`Evaluate this store verification request:

Store: %s
Location: %s
Description: %s

Verification Reason: %s
Proof URL: %s

Please evaluate if this store should be verified based on:
1. Legitimacy of the business
2. Quality of the proof provided
3. Reasonableness of the verification reason

Respond with either 'APPROVE' or 'REJECT' followed by a brief explanation.`,
		target.Name, target.Location, target.Description, sub.Reason, sub.ProofURL)

	evaluation, err := s.judge.Evaluate(ctx, prompt)
	if err != nil {
		s.logger.Warnw("ai judge unavailable, failing open", "store_id", target.ID, "error", err)
		return "APPROVE - AI agent error, auto-approved"
	}
	return evaluation
}
