package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agroclim/climate-grid/internal/store"
)

const dateLayout = "2006-01-02"

func (s *Server) handleListPPI(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	points, err := s.store.ListPPIPoints(ctx)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(points), "points": points})
}

func (s *Server) handleListGrid(c *gin.Context) {
	limit := s.cfg.DefaultLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	cells, err := s.store.ListGridCells(ctx, limit)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(cells), "cells": cells})
}

type gridCellPayload struct {
	Lat        *float64 `json:"lat" binding:"required"`
	Lon        *float64 `json:"lon" binding:"required"`
	PolygonWKT *string  `json:"polygon_wkt"`
}

func (s *Server) handleUpsertGridCell(c *gin.Context) {
	geohash := c.Param("geohash")

	var payload gridCellPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	cell := store.GridCell{
		Geohash:    geohash,
		Lat:        *payload.Lat,
		Lon:        *payload.Lon,
		PolygonWKT: payload.PolygonWKT,
	}
	if err := s.store.UpsertGridCells(ctx, []store.GridCell{cell}); err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"geohash": geohash})
}

func (s *Server) handleDeleteGridCell(c *gin.Context) {
	geohash := c.Param("geohash")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := s.store.DeleteGridCell(ctx, geohash); err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": geohash})
}

type dailyRecordPayload struct {
	Geohash   string   `json:"geohash" binding:"required"`
	Date      string   `json:"date" binding:"required"`
	Tmin      *float64 `json:"tmin"`
	Tmax      *float64 `json:"tmax"`
	Radiation *float64 `json:"radiation"`
	Rain      *float64 `json:"rain"`
	RH        *float64 `json:"rh"`
	Wind      *float64 `json:"wind"`
	ET0       *float64 `json:"et0"`
}

func (s *Server) handleUpsertDaily(c *gin.Context) {
	var payload []dailyRecordPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(payload) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty record list"})
		return
	}

	records := make([]store.DailyRecord, 0, len(payload))
	for _, p := range payload {
		date, err := time.Parse(dateLayout, p.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date: " + p.Date})
			return
		}
		records = append(records, store.DailyRecord{
			Geohash:   p.Geohash,
			Date:      date,
			Tmin:      p.Tmin,
			Tmax:      p.Tmax,
			Radiation: p.Radiation,
			Rain:      p.Rain,
			RH:        p.RH,
			Wind:      p.Wind,
			ET0:       p.ET0,
		})
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	inserted, err := s.store.UpsertDailyRecords(ctx, store.DedupeDailyRecords(records))
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": len(records), "inserted": inserted})
}

type weeklyAggregatePayload struct {
	Geohash      string   `json:"geohash" binding:"required"`
	StartDate    string   `json:"start_date" binding:"required"`
	EndDate      string   `json:"end_date" binding:"required"`
	AvgTmin      *float64 `json:"avg_tmin"`
	AvgTmax      *float64 `json:"avg_tmax"`
	AvgRadiation *float64 `json:"avg_radiation"`
	TotalRain    *float64 `json:"total_rain"`
	AvgRH        *float64 `json:"avg_rh"`
	AvgWind      *float64 `json:"avg_wind"`
	AvgET0       *float64 `json:"avg_et0"`
}

func (s *Server) handleUpsertWeekly(c *gin.Context) {
	var payload weeklyAggregatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := time.Parse(dateLayout, payload.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date: " + payload.StartDate})
		return
	}
	end, err := time.Parse(dateLayout, payload.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date: " + payload.EndDate})
		return
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date precedes start_date"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	aggregate := store.WeeklyAggregate{
		Geohash:      payload.Geohash,
		StartDate:    start,
		EndDate:      end,
		AvgTmin:      payload.AvgTmin,
		AvgTmax:      payload.AvgTmax,
		AvgRadiation: payload.AvgRadiation,
		TotalRain:    payload.TotalRain,
		AvgRH:        payload.AvgRH,
		AvgWind:      payload.AvgWind,
		AvgET0:       payload.AvgET0,
	}
	if err := s.store.UpsertWeeklyAggregates(ctx, []store.WeeklyAggregate{aggregate}); err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"geohash": payload.Geohash, "end_date": payload.EndDate})
}

func (s *Server) handleLatestClimate(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	rows, err := s.store.LatestClimate(ctx)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(rows), "cells": rows})
}

func (s *Server) handleWeeklySummary(c *gin.Context) {
	limit := s.cfg.DefaultLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	rows, err := s.store.WeeklySummary(ctx, limit)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(rows), "weeks": rows})
}

// storeError maps the store's integrity errors onto HTTP statuses.
func (s *Server) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrMissingGridCell):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrInvalidGeometry):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.serverError(c, err)
	}
}

func (s *Server) serverError(c *gin.Context, err error) {
	s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
