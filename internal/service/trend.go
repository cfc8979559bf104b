package service

import (
	"math"
	"time"

	"spacefeed/internal/extract"
	"spacefeed/internal/models"
)

const (
	earthRadiusKm = 6371.0
	// Смещение больше этого порога считается движением
	movementThresholdKm = 0.1
)

// CalculateTrend считает тренд по двум последним позициям.
// recent[0] - самая новая запись, recent[1] - предыдущая.
func CalculateTrend(recent []models.PositionSnapshot) *models.ISSTrend {
	if len(recent) < 2 {
		return &models.ISSTrend{}
	}

	current, previous := recent[0], recent[1]
	curDoc, _ := extract.DecodeObject(current.Payload)
	prevDoc, _ := extract.DecodeObject(previous.Payload)

	fromTime := previous.FetchedAt
	toTime := current.FetchedAt

	trend := &models.ISSTrend{
		DtSec:    secondsBetween(fromTime, toTime),
		FromTime: &fromTime,
		ToTime:   &toTime,
	}

	// Скорость берётся из ответа как есть
	if v, ok := extract.PickFloat(curDoc, "velocity"); ok {
		trend.VelocityKmh = &v
	}

	lat1, okLat1 := extract.PickFloat(prevDoc, "latitude")
	lon1, okLon1 := extract.PickFloat(prevDoc, "longitude")
	lat2, okLat2 := extract.PickFloat(curDoc, "latitude")
	lon2, okLon2 := extract.PickFloat(curDoc, "longitude")

	if okLat1 {
		trend.FromLat = &lat1
	}
	if okLon1 {
		trend.FromLon = &lon1
	}
	if okLat2 {
		trend.ToLat = &lat2
	}
	if okLon2 {
		trend.ToLon = &lon2
	}

	if okLat1 && okLon1 && okLat2 && okLon2 {
		trend.DeltaKm = haversineDistance(lat1, lon1, lat2, lon2)
		trend.Movement = trend.DeltaKm > movementThresholdKm
	}

	return trend
}

// secondsBetween - разница со знаком, с точностью до миллисекунд
func secondsBetween(from, to time.Time) float64 {
	return float64(to.Sub(from).Milliseconds()) / 1000
}

func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	fi1 := lat1 * math.Pi / 180
	fi2 := lat2 * math.Pi / 180
	deltaFi := (lat2 - lat1) * math.Pi / 180
	deltaLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaFi/2)*math.Sin(deltaFi/2) +
		math.Cos(fi1)*math.Cos(fi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
