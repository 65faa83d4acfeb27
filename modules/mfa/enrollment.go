package mfa

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mfakit/pkg/binder"
	mfasvc "github.com/dmitrymomot/mfakit/svc/mfa"
)

type BeginEnrollmentRequest struct {
	Issuer string `json:"issuer,omitempty"`
}

type EnrollmentResponse struct {
	FactorID        uuid.UUID `json:"factor_id"`
	Secret          string    `json:"secret"`
	ProvisioningURI string    `json:"provisioning_uri"`
	QRCode          string    `json:"qr_code,omitempty"`
	RefreshIn       int       `json:"refresh_in"`
}

type CompleteEnrollmentRequest struct {
	Secret string `json:"secret"`
	Code   string `json:"code"`
}

type ActivationResponse struct {
	FactorID    uuid.UUID `json:"factor_id"`
	IsPrimary   bool      `json:"is_primary"`
	BackupCodes []string  `json:"backup_codes,omitempty"`
}

type EnrollChannelRequest struct {
	Destination string `json:"destination"`
}

type ChannelEnrollmentResponse struct {
	FactorID uuid.UUID `json:"factor_id"`
}

type CompleteChannelEnrollmentRequest struct {
	Code string `json:"code"`
}

func (h *Handler) beginEnrollment(w http.ResponseWriter, r *http.Request) {
	id, err := principalID(r)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	var req BeginEnrollmentRequest
	if err := h.bind(r, &req); err != nil && !errors.Is(err, binder.ErrEmptyBody) {
		h.fail(w, r, requestProblem(err), err)
		return
	}

	e, err := h.svc.BeginEnrollment(r.Context(), id, req.Issuer)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	writeData(w, http.StatusCreated, EnrollmentResponse{
		FactorID:        e.FactorID,
		Secret:          e.Secret,
		ProvisioningURI: e.ProvisioningURI,
		QRCode:          e.QRCode,
		RefreshIn:       e.RefreshIn,
	})
}

func (h *Handler) completeEnrollment(w http.ResponseWriter, r *http.Request) {
	id, err := principalID(r)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	var req CompleteEnrollmentRequest
	if err := h.bind(r, &req); err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}

	act, err := h.svc.CompleteEnrollment(r.Context(), id, req.Secret, req.Code)
	if err != nil {
		h.fail(w, r, verificationProblem(err), err)
		return
	}
	writeData(w, http.StatusOK, activationResponse(act))
}

func (h *Handler) enrollChannel(w http.ResponseWriter, r *http.Request) {
	id, err := principalID(r)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	ch, err := channel(r)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	var req EnrollChannelRequest
	if err := h.bind(r, &req); err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}

	fid, err := h.svc.EnrollChannel(r.Context(), id, ch, req.Destination)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	writeData(w, http.StatusCreated, ChannelEnrollmentResponse{FactorID: fid})
}

func (h *Handler) completeChannelEnrollment(w http.ResponseWriter, r *http.Request) {
	id, err := principalID(r)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	ch, err := channel(r)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	var req CompleteChannelEnrollmentRequest
	if err := h.bind(r, &req); err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}

	act, err := h.svc.CompleteChannelEnrollment(r.Context(), id, ch, req.Code)
	if err != nil {
		h.fail(w, r, verificationProblem(err), err)
		return
	}
	writeData(w, http.StatusOK, activationResponse(act))
}

func activationResponse(act *mfasvc.Activation) ActivationResponse {
	return ActivationResponse{
		FactorID:    act.FactorID,
		IsPrimary:   act.IsPrimary,
		BackupCodes: act.BackupCodes,
	}
}
