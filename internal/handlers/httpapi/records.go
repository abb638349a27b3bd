package httpapi

import (
	"time"

	"github.com/flockhq/flock/internal/entities"
	"github.com/flockhq/flock/internal/services"
	"github.com/gofiber/fiber/v2"
)

type recordHandler struct {
	records services.RecordServiceInterface
	schemas services.SchemaProvider
}

// Create handles POST /v1/models/:model. The body is the field object.
func (h *recordHandler) Create(c *fiber.Ctx) error {
	fields, err := parseFields(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	record, err := h.records.Create(c.UserContext(), c.Params("model"), fields)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"record": h.encode(record)})
}

// Get handles GET /v1/models/:model/:id
func (h *recordHandler) Get(c *fiber.Ctx) error {
	record, err := h.records.Get(c.UserContext(), c.Params("model"), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"record": h.encode(record)})
}

// Update handles PATCH /v1/models/:model/:id
func (h *recordHandler) Update(c *fiber.Ctx) error {
	fields, err := parseFields(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	record, err := h.records.Update(c.UserContext(), c.Params("model"), c.Params("id"), fields)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"record": h.encode(record)})
}

// Delete handles DELETE /v1/models/:model/:id
func (h *recordHandler) Delete(c *fiber.Ctx) error {
	if err := h.records.Delete(c.UserContext(), c.Params("model"), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// List handles GET /v1/models/:model. Query parameters are equality filters.
func (h *recordHandler) List(c *fiber.Ctx) error {
	filter := make(map[string]any)
	for key, value := range c.Queries() {
		filter[key] = value
	}

	records, err := h.records.List(c.UserContext(), c.Params("model"), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"records": h.encodeAll(records)})
}

// Related handles GET /v1/models/:model/:id/:relationship
func (h *recordHandler) Related(c *fiber.Ctx) error {
	records, err := h.records.Related(c.UserContext(), c.Params("model"), c.Params("id"), c.Params("relationship"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"records": h.encodeAll(records)})
}

func parseFields(c *fiber.Ctx) (map[string]any, error) {
	fields := make(map[string]any)
	if len(c.Body()) == 0 {
		return fields, nil
	}
	if err := c.BodyParser(&fields); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "request body must be a JSON object of fields")
	}
	return fields, nil
}

func (h *recordHandler) encode(record *entities.Record) map[string]any {
	var model *entities.Model
	if schema, err := h.schemas.Current(); err == nil {
		model = schema.GetModel(record.Model)
	}
	return record.Encode(model)
}

func (h *recordHandler) encodeAll(records []*entities.Record) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, record := range records {
		out = append(out, h.encode(record))
	}
	return out
}

type schemaHandler struct {
	schemas services.SchemaServiceInterface
}

// Read handles GET /v1/schema, or a stored version with ?version=
func (h *schemaHandler) Read(c *fiber.Ctx) error {
	var (
		schema *entities.Schema
		err    error
	)
	if version := c.Query("version"); version != "" {
		schema, err = h.schemas.GetSchemaEntity(c.UserContext(), version)
	} else {
		schema, err = h.schemas.ReadSchema(c.UserContext())
	}
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"version":   schema.Version,
		"checksum":  schema.Checksum,
		"dsl":       schema.DSL,
		"createdAt": schema.CreatedAt.UTC().Format(time.RFC3339),
	})
}
