// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"time"

	"github.com/danielhkuo/aquadrop/auth"
	"github.com/danielhkuo/aquadrop/cliparse"
	"github.com/danielhkuo/aquadrop/expiry"
	"github.com/danielhkuo/aquadrop/middleware"
	"github.com/danielhkuo/aquadrop/models"
)

type CronHandler struct {
	sweeper *expiry.Sweeper
	cfg     cliparse.Config
	now     func() time.Time
}

func NewCronHandler(sweeper *expiry.Sweeper, cfg cliparse.Config) *CronHandler {
	return &CronHandler{sweeper: sweeper, cfg: cfg, now: time.Now}
}

// ExpireOffers handles GET /api/cron/expire-offers
// Requires Authorization: Bearer <CRON_SECRET>. Rejected calls do no work.
func (h *CronHandler) ExpireOffers(w http.ResponseWriter, r *http.Request) {
	if err := auth.ValidateBearer(r.Header.Get("Authorization"), h.cfg.CronSecret); err != nil {
		middleware.JSONResponse(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	res, err := h.sweeper.Sweep(r.Context(), h.now())
	if err != nil {
		middleware.JSONResponse(w, http.StatusInternalServerError, models.SweepErrorResponse{
			Error:      err.Error(),
			DurationMS: res.Duration.Milliseconds(),
		})
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SweepResponse{
		ExpiredCount: res.ExpiredCount,
		DurationMS:   res.Duration.Milliseconds(),
	})
}
