package httpapi

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/i474232898/weather-cli/internal/common"
	"github.com/i474232898/weather-cli/internal/observability"
	"github.com/i474232898/weather-cli/internal/store"
	"github.com/i474232898/weather-cli/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, resolver *weather.Resolver, settings *store.ConfigStore) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(observability.MetricsHandler()))

	v1 := app.Group("/api/v1")

	v1.Get("/weather", func(c *fiber.Ctx) error {
		q, err := parseWeatherQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := resolver.Get(c.UserContext(), q.Location, q.Provider, q.Date)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(report)
	})

	v1.Get("/providers", func(c *fiber.Ctx) error {
		return c.JSON(providerViews(settings.Providers()))
	})

	v1.Get("/aliases", func(c *fiber.Ctx) error {
		aliases := settings.Aliases()
		if aliases == nil {
			aliases = []weather.Alias{}
		}
		return c.JSON(aliases)
	})

	v1.Put("/aliases/:name", func(c *fiber.Ctx) error {
		var body aliasBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "address is required")
		}

		name := c.Params("name")
		becameDefault, err := settings.SetAlias(c.UserContext(), name, body.Address)
		if err != nil {
			return toFiberError(err)
		}
		alias, _ := findAlias(settings.Aliases(), name)
		return c.JSON(fiber.Map{
			"alias":         alias,
			"becameDefault": becameDefault,
		})
	})

	v1.Put("/aliases/:name/default", func(c *fiber.Ctx) error {
		if err := settings.SetDefaultAlias(c.UserContext(), c.Params("name")); err != nil {
			return toFiberError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Delete("/aliases/:name", func(c *fiber.Ctx) error {
		wasDefault, err := settings.RemoveAlias(c.UserContext(), c.Params("name"))
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(fiber.Map{
			"removed":    strings.ToLower(c.Params("name")),
			"wasDefault": wasDefault,
		})
	})
}

// weatherQuery holds query parameters for the weather endpoint. An empty location
// selects the default alias.
type weatherQuery struct {
	Location string `validate:"max=256"`
	Provider string `validate:"max=32"`
	Date     time.Time
}

func parseWeatherQuery(c *fiber.Ctx) (weatherQuery, error) {
	var q weatherQuery
	q.Location = c.Query("location")
	q.Provider = c.Query("provider")

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	date, err := weather.ParseDate(c.Query("date"))
	if err != nil {
		return q, err
	}
	q.Date = date
	return q, nil
}

type aliasBody struct {
	Address string `json:"address" validate:"required"`
}

type providerView struct {
	ID        weather.ProviderID `json:"id"`
	Name      string             `json:"name"`
	Default   bool               `json:"default"`
	HasKey    bool               `json:"hasKey"`
	MaskedKey string             `json:"key,omitempty"`
}

// providerViews lists every known provider, configured or not.
func providerViews(configured []weather.ProviderConfig) []providerView {
	out := make([]providerView, 0, len(weather.KnownProviders()))
	for _, id := range weather.KnownProviders() {
		v := providerView{ID: id, Name: id.Name(), HasKey: !id.RequiresKey()}
		for _, cfg := range configured {
			if cfg.ID != id {
				continue
			}
			v.Default = cfg.IsDefault
			if cfg.HasKey() {
				v.HasKey = true
				v.MaskedKey = common.MaskSecret(cfg.APIKey)
			}
		}
		out = append(out, v)
	}
	return out
}

func findAlias(list []weather.Alias, name string) (weather.Alias, bool) {
	for _, a := range list {
		if strings.EqualFold(a.Name, strings.TrimSpace(name)) {
			return a, true
		}
	}
	return weather.Alias{}, false
}

// toFiberError maps error kinds onto HTTP statuses.
func toFiberError(err error) error {
	switch {
	case errors.Is(err, store.ErrInvalidAlias),
		errors.Is(err, weather.ErrUnknownProvider),
		errors.Is(err, weather.ErrNoDefaultAlias),
		errors.Is(err, weather.ErrUnsupportedDate):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, weather.ErrNoDefaultProvider):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, weather.ErrUnknownAlias),
		errors.Is(err, weather.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case weather.IsProviderError(err):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
