package mfa

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mfakit/pkg/binder"
	mfasvc "github.com/dmitrymomot/mfakit/svc/mfa"
)

type FactorResponse struct {
	ID         uuid.UUID  `json:"id"`
	Type       string     `json:"type"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	IsPrimary  bool       `json:"is_primary"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type FactorChangeResponse struct {
	// PromotedFactorID is set when the change moved the primary flag to another factor.
	PromotedFactorID *uuid.UUID `json:"promoted_factor_id,omitempty"`
}

type GenerateBackupCodesRequest struct {
	Count int `json:"count,omitempty"`
}

type BackupCodesResponse struct {
	Codes []string `json:"codes"`
}

func (h *Handler) listFactors(w http.ResponseWriter, r *http.Request) {
	id, err := principalID(r)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	factors, err := h.svc.ListFactors(r.Context(), id)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}

	out := make([]FactorResponse, 0, len(factors))
	for _, f := range factors {
		out = append(out, FactorResponse{
			ID:         f.ID,
			Type:       string(f.Type),
			Name:       f.Name,
			Status:     string(f.Status),
			IsPrimary:  f.IsPrimary,
			LastUsedAt: f.LastUsedAt,
			CreatedAt:  f.CreatedAt,
		})
	}
	writeData(w, http.StatusOK, out)
}

type factorChange func(ctx context.Context, principalID, factorID uuid.UUID) (*uuid.UUID, error)

func (h *Handler) changeFactor(w http.ResponseWriter, r *http.Request, apply factorChange) {
	pid, err := principalID(r)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	fid, err := factorID(r)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	promoted, err := apply(r.Context(), pid, fid)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	writeData(w, http.StatusOK, FactorChangeResponse{PromotedFactorID: promoted})
}

func (h *Handler) disableFactor(w http.ResponseWriter, r *http.Request) {
	h.changeFactor(w, r, h.svc.DisableFactor)
}

func (h *Handler) deleteFactor(w http.ResponseWriter, r *http.Request) {
	h.changeFactor(w, r, h.svc.DeleteFactor)
}

func (h *Handler) setPrimary(w http.ResponseWriter, r *http.Request) {
	h.changeFactor(w, r, func(ctx context.Context, pid, fid uuid.UUID) (*uuid.UUID, error) {
		if err := h.svc.SetPrimary(ctx, pid, fid); err != nil {
			return nil, err
		}
		return &fid, nil
	})
}

func (h *Handler) generateBackupCodes(w http.ResponseWriter, r *http.Request) {
	id, err := principalID(r)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	var req GenerateBackupCodesRequest
	if err := h.bind(r, &req); err != nil && !errors.Is(err, binder.ErrEmptyBody) {
		h.fail(w, r, requestProblem(err), err)
		return
	}

	codes, err := h.svc.GenerateBackupCodes(r.Context(), id, req.Count)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	writeData(w, http.StatusCreated, BackupCodesResponse{Codes: codes})
}

var _ Service = (*mfasvc.Service)(nil)
