package mfa

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/mfakit/pkg/binder"
	"github.com/dmitrymomot/mfakit/pkg/clientip"
	mfasvc "github.com/dmitrymomot/mfakit/svc/mfa"
)

type RequiredResponse struct {
	Required bool `json:"required"`
}

type VerifyRequest struct {
	Code string `json:"code"`
}

type VerifyResponse struct {
	Verified bool `json:"verified"`
}

type SendChannelCodeRequest struct {
	Channel     string `json:"channel"`
	Destination string `json:"destination,omitempty"`
}

type VerifyChannelCodeRequest struct {
	Channel string `json:"channel"`
	Code    string `json:"code"`
}

func (h *Handler) required(w http.ResponseWriter, r *http.Request) {
	id, err := principalID(r)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	required, err := h.svc.IsMFARequired(r.Context(), id)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	writeData(w, http.StatusOK, RequiredResponse{Required: required})
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	id, err := principalID(r)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	var req VerifyRequest
	if err := h.bind(r, &req); err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}

	ok, err := h.svc.Verify(r.Context(), id, req.Code, clientip.GetIPFromContext(r.Context()))
	if err != nil || !ok {
		h.fail(w, r, verificationProblem(err), err)
		return
	}
	writeData(w, http.StatusOK, VerifyResponse{Verified: true})
}

func (h *Handler) sendChannelCode(w http.ResponseWriter, r *http.Request) {
	id, err := principalID(r)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	var req SendChannelCodeRequest
	if err := h.bind(r, &req); err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	ch, err := parseBodyChannel(req.Channel)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}

	if err := h.svc.SendChannelCode(r.Context(), id, ch, req.Destination); err != nil {
		h.fail(w, r, verificationProblem(err), err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) verifyChannelCode(w http.ResponseWriter, r *http.Request) {
	id, err := principalID(r)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	var req VerifyChannelCodeRequest
	if err := h.bind(r, &req); err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}
	ch, err := parseBodyChannel(req.Channel)
	if err != nil {
		h.fail(w, r, requestProblem(err), err)
		return
	}

	ok, err := h.svc.VerifyChannelCode(r.Context(), id, ch, req.Code)
	if err != nil || !ok {
		h.fail(w, r, verificationProblem(err), err)
		return
	}
	writeData(w, http.StatusOK, VerifyResponse{Verified: true})
}

// parseBodyChannel is ParseChannel for a channel named in a request body, where
// an unknown value is a bad request rather than a missing route.
func parseBodyChannel(name string) (mfasvc.Channel, error) {
	ch, err := mfasvc.ParseChannel(name)
	if err != nil {
		return "", errors.Join(binder.ErrFailedToParseJSON, err)
	}
	return ch, nil
}
