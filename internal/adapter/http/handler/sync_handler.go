package handler

import (
	"time"

	"cointracker/internal/adapter/http/dto"
	"cointracker/internal/core/domain"
	"cointracker/internal/core/ports"
	"cointracker/pkg/apperror"
	"cointracker/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SyncHandler handles sync job endpoints.
type SyncHandler struct {
	scheduler ports.SyncScheduler
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(scheduler ports.SyncScheduler) *SyncHandler {
	return &SyncHandler{scheduler: scheduler}
}

// StartSync handles POST /api/v1/wallets/:address/sync. The job runs in
// the background; 202 carries the id to poll.
func (h *SyncHandler) StartSync(c *gin.Context) {
	jobID, err := h.scheduler.Enqueue(c.Request.Context(), c.Param("address"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, dto.SyncAcceptedResponse{JobID: jobID.String()})
}

// GetJob handles GET /api/v1/jobs/:id.
func (h *SyncHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrJobNotFound())
		return
	}

	job, err := h.scheduler.GetJob(c.Request.Context(), jobID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toSyncJobResponse(job))
}

func toSyncJobResponse(j *domain.SyncJob) dto.SyncJobResponse {
	return dto.SyncJobResponse{
		ID:          j.ID.String(),
		WalletID:    j.WalletID.String(),
		Status:      string(j.Status),
		ErrorDetail: j.ErrorDetail,
		StartedAt:   formatTimePtr(j.StartedAt),
		CompletedAt: formatTimePtr(j.CompletedAt),
		CreatedAt:   j.CreatedAt.UTC().Format(time.RFC3339),
	}
}
