package controllers

import (
	"net/http"

	"fota-manager/backend/app/dto"
	"fota-manager/backend/app/services"
)

type DeviceController struct{ Devices *services.DeviceService }

func NewDeviceController(devices *services.DeviceService) *DeviceController {
	return &DeviceController{Devices: devices}
}

func (c *DeviceController) List(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	devices, err := c.Devices.List(target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	next, err := c.Devices.NextSequenceNumber(target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DeviceListResponse{Target: target, Devices: devices, NextSlNo: next})
}

func (c *DeviceController) Add(w http.ResponseWriter, r *http.Request) {
	var req dto.AddDeviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := c.Devices.AddDevice(req.Target, req.VCUSerial, req.IPAddress, req.FirmwareVersion)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logf(r, "added device %s to %s as #%d", rec.VCUSerial, req.Target, rec.SlNo)
	writeJSON(w, http.StatusCreated, rec)
}
