package controllers

import (
	"net/http"
	"strconv"

	"fota-manager/backend/app/apperr"
	"fota-manager/backend/app/dto"
	"fota-manager/backend/app/models"
	"fota-manager/backend/app/services"
)

// PushHistoryReader is the read side of the push audit table.
type PushHistoryReader interface {
	ListByDevice(target, serial string, limit int) ([]models.PushRecord, error)
	ListRecent(limit int) ([]models.PushRecord, error)
}

type PushController struct {
	Push    *services.PushService
	Records PushHistoryReader
}

func NewPushController(push *services.PushService, history PushHistoryReader) *PushController {
	return &PushController{Push: push, Records: history}
}

func (c *PushController) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.PushRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var (
		job *services.PushJob
		err error
	)
	if req.Wait {
		job, err = c.Push.Push(r.Context(), req.Target, req.VCUSerial, req.Version, userOf(r))
	} else {
		job, err = c.Push.Start(r.Context(), req.Target, req.VCUSerial, req.Version, userOf(r))
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	logf(r, "push %s -> %s %s: %s", req.Version, req.Target, req.VCUSerial, job.State)
	status := http.StatusAccepted
	if job.State.Terminal() {
		status = http.StatusOK
	}
	writeJSON(w, status, job)
}

func (c *PushController) Get(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, r, apperr.Validation("push job", "id is required"))
		return
	}
	job, err := c.Push.Get(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (c *PushController) Jobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.Push.List())
}

func (c *PushController) History(w http.ResponseWriter, r *http.Request) {
	resp := dto.PushHistoryResponse{Records: []models.PushRecord{}}
	if c.Records == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var (
		recs []models.PushRecord
		err  error
	)
	if serial := q.Get("vcu_serial"); serial != "" {
		recs, err = c.Records.ListByDevice(q.Get("target"), serial, limit)
	} else {
		recs, err = c.Records.ListRecent(limit)
	}
	if err != nil {
		writeError(w, r, apperr.Internal("push history", err))
		return
	}
	if recs != nil {
		resp.Records = recs
	}
	writeJSON(w, http.StatusOK, resp)
}
