package http

import (
	"encoding/json"
	"log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/fueltrack/api/internal/service"
)

func registerLogging(e *echo.Echo) {
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			userID := "anonymous"
			if identity, ok := c.Get(contextIdentityKey).(service.Identity); ok {
				userID = identity.UserID.String()
			}

			payload := struct {
				Time      string `json:"time"`
				UserUUID  string `json:"user_uuid"`
				LatencyMS int64  `json:"latency_ms"`
				Method    string `json:"method"`
				URI       string `json:"uri"`
				Status    int    `json:"status"`
				Error     string `json:"error,omitempty"`
			}{
				Time:      v.StartTime.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
				UserUUID:  userID,
				LatencyMS: v.Latency.Milliseconds(),
				Method:    v.Method,
				URI:       v.URI,
				Status:    v.Status,
			}
			if v.Error != nil {
				payload.Error = v.Error.Error()
			}

			line, err := json.Marshal(payload)
			if err != nil {
				log.Printf("marshal request log: %v", err)
				return nil
			}
			log.Println(string(line))
			return nil
		},
	}))
}
