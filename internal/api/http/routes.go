package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/flight-delays/internal/delays"
)

var validate = validator.New()

// DelayService is what the handlers need from the delays service.
type DelayService interface {
	FetchAndStore(ctx context.Context, params delays.FetchParams) (delays.FetchResult, error)
	Summary(ctx context.Context, airport, from, to string) ([]delays.DelaySummary, error)
	ListDelays(ctx context.Context) ([]delays.DelayRecord, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service DelayService) {
	app.Get("/fetch_delays", func(c *fiber.Ctx) error {
		var q fetchQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, validationMessage(err))
		}

		result, err := service.FetchAndStore(c.UserContext(), q.toParams())
		if err != nil {
			slog.Error("error in /fetch_delays endpoint", "error", err)
			return mapError(err)
		}

		if result.ProviderError != "" {
			return c.JSON(fiber.Map{
				"status":  "provider_error",
				"message": "Provider reported an error: " + result.ProviderError,
				"result":  result,
			})
		}
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Data fetched and stored successfully.",
			"result":  result,
		})
	})

	app.Get("/summary", func(c *fiber.Ctx) error {
		var q summaryQuery
		q.bind(c)
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, validationMessage(err))
		}

		summary, err := service.Summary(c.UserContext(), q.AirportCode, q.From, q.To)
		if err != nil {
			if !errors.Is(err, delays.ErrNotFound) && !errors.Is(err, delays.ErrInvalidTime) {
				slog.Error("error in /summary endpoint", "error", err)
			}
			return mapError(err)
		}
		return c.JSON(summary)
	})

	app.Get("/delays", func(c *fiber.Ctx) error {
		records, err := service.ListDelays(c.UserContext())
		if err != nil {
			slog.Error("error in /delays endpoint", "error", err)
			return mapError(err)
		}
		if records == nil {
			records = []delays.DelayRecord{}
		}
		return c.JSON(records)
	})
}

// mapError turns service sentinels into HTTP errors.
func mapError(err error) error {
	switch {
	case errors.Is(err, delays.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, delays.ErrNotFound.Error())
	case errors.Is(err, delays.ErrInvalidTime):
		return fiber.NewError(fiber.StatusBadRequest, delays.ErrInvalidTime.Error())
	case errors.Is(err, delays.ErrInvalidParams):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, delays.ErrUpstream):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

// fetchQuery holds query parameters for the manual fetch trigger.
type fetchQuery struct {
	FlightType           string `validate:"required,oneof=arrivals departures"`
	MinDelayedTime       int    `validate:"gte=0"`
	ArrivalAirportCode   string `validate:"omitempty,len=3,uppercase,alpha"`
	DepartureAirportCode string `validate:"omitempty,len=3,uppercase,alpha"`
}

func (q *fetchQuery) bind(c *fiber.Ctx) error {
	q.FlightType = c.Query("flight_type")
	q.ArrivalAirportCode = c.Query("arrival_airport_code")
	q.DepartureAirportCode = c.Query("departure_airport_code")

	raw := strings.TrimSpace(c.Query("min_delayed_time"))
	if raw == "" {
		return errors.New("min_delayed_time query parameter is required")
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return errors.New("min_delayed_time must be an integer")
	}
	q.MinDelayedTime = n
	return nil
}

func (q fetchQuery) toParams() delays.FetchParams {
	return delays.FetchParams{
		Direction:            delays.Direction(q.FlightType),
		MinDelay:             q.MinDelayedTime,
		ArrivalAirportCode:   q.ArrivalAirportCode,
		DepartureAirportCode: q.DepartureAirportCode,
	}
}

// summaryQuery holds query parameters for the summary endpoint.
// Time bounds are parsed by the service so format errors map to ErrInvalidTime.
type summaryQuery struct {
	AirportCode string `validate:"required,len=3,uppercase,alpha"`
	From        string
	To          string
}

func (q *summaryQuery) bind(c *fiber.Ctx) {
	q.AirportCode = c.Query("airport_code")
	q.From = c.Query("date_time_from")
	q.To = c.Query("date_time_to")
}

// validationMessage flattens validator errors into "field: rule" pairs.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, queryName(fe.Field())+": failed "+fe.Tag())
	}
	return "invalid query parameters: " + strings.Join(parts, ", ")
}

func queryName(field string) string {
	switch field {
	case "FlightType":
		return "flight_type"
	case "MinDelayedTime":
		return "min_delayed_time"
	case "ArrivalAirportCode":
		return "arrival_airport_code"
	case "DepartureAirportCode":
		return "departure_airport_code"
	case "AirportCode":
		return "airport_code"
	default:
		return field
	}
}
