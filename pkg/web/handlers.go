package web

import (
	"context"
	"net/http"
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/protocol"
	"github.com/dmayes77/clientflow-sub001/pkg/provision"
	"github.com/dmayes77/clientflow-sub001/pkg/registry"
	"github.com/dmayes77/clientflow-sub001/pkg/services"
	"github.com/dmayes77/clientflow-sub001/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// PendingProcessor runs delayed workflow runs that are due.
type PendingProcessor interface {
	ProcessPendingWorkflows(ctx context.Context) (*workflow.ProcessSummary, error)
}

// ContextLoader resolves trigger refs into a trigger context.
type ContextLoader interface {
	Load(ctx context.Context, refs models.ContextRefs) (*models.TriggerContext, error)
}

type APIHandlers struct {
	workflowService *services.Workflow
	lifecycle       *services.Lifecycle
	provisioner     *provision.Provisioner
	loader          ContextLoader
	pending         PendingProcessor
	emitter         protocol.TriggerEmitter
	validator       *validator.Validate
	registry        *registry.Registry
}

// Dependencies are the collaborators of the API handlers.
type Dependencies struct {
	Workflows   *services.Workflow
	Lifecycle   *services.Lifecycle
	Provisioner *provision.Provisioner
	Loader      ContextLoader
	Pending     PendingProcessor
	Emitter     protocol.TriggerEmitter
	Validator   *validator.Validate
	Registry    *registry.Registry
}

func NewAPIHandlers(deps Dependencies) *APIHandlers {
	emitter := deps.Emitter
	if emitter == nil {
		emitter = protocol.NopEmitter{}
	}

	validate := deps.Validator
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}

	return &APIHandlers{
		workflowService: deps.Workflows,
		lifecycle:       deps.Lifecycle,
		provisioner:     deps.Provisioner,
		loader:          deps.Loader,
		pending:         deps.Pending,
		emitter:         emitter,
		validator:       validate,
		registry:        deps.Registry,
	}
}

// Routes mounts every endpoint on r.
func (h *APIHandlers) Routes(r fiber.Router) {
	r.Get("/health", h.HealthCheck)
	r.Get("/actions", h.GetActionTypes)
	r.Post("/runs/process-pending", h.ProcessPending)

	t := r.Group("/tenants/:tenantId")
	t.Post("/provision", h.ProvisionTenant)
	t.Post("/triggers/:trigger", h.RaiseTrigger)
	t.Post("/contacts/:id/convert", h.ConvertContact)
	t.Post("/:kind/:id/status", h.TransitionStatus)

	w := t.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Patch("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Get("/:id/runs", h.GetWorkflowRuns)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "ClientFlow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "ClientFlow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
			"actions":    len(h.registry.Types()),
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetActionTypes(c fiber.Ctx) error {
	types := h.registry.Types()
	response := make([]ActionTypeResponse, 0, len(types))

	for _, actionType := range types {
		schema, err := h.registry.Schema(actionType)
		if err != nil {
			return internalError(c, err)
		}

		response = append(response, ActionTypeResponse{Type: actionType, Schema: schema})
	}

	return c.JSON(response)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context(), c.Params("tenantId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflows)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	wf, err := h.workflowService.FetchByID(c.Context(), c.Params("tenantId"), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(wf)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	actions := req.Actions
	if actions == nil {
		actions = []models.Action{}
	}

	wf := &models.Workflow{
		Name:         req.Name,
		Description:  req.Description,
		TriggerType:  req.TriggerType,
		TriggerTagID: req.TriggerTagID,
		Active:       active,
		DelayMinutes: req.DelayMinutes,
		Actions:      actions,
	}

	created, err := h.workflowService.Create(c.Context(), c.Params("tenantId"), wf)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	tenantID := c.Params("tenantId")

	existing, err := h.workflowService.FetchByID(c.Context(), tenantID, id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.TriggerType != nil {
		existing.TriggerType = *req.TriggerType
	}

	if req.TriggerTagID != nil {
		existing.TriggerTagID = req.TriggerTagID
	}

	if req.Active != nil {
		existing.Active = *req.Active
	}

	if req.DelayMinutes != nil {
		existing.DelayMinutes = *req.DelayMinutes
	}

	if req.Actions != nil {
		existing.Actions = req.Actions
	}

	updated, err := h.workflowService.Update(c.Context(), tenantID, id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	err := h.workflowService.Delete(c.Context(), c.Params("tenantId"), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetWorkflowRuns(c fiber.Ctx) error {
	runs, err := h.workflowService.Runs(c.Context(), c.Params("tenantId"), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(runs)
}

func (h *APIHandlers) ProvisionTenant(c fiber.Ctx) error {
	report, err := h.provisioner.ProvisionTenant(c.Context(), c.Params("tenantId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(report)
}

// RaiseTrigger hands a trigger to the emitter and returns without waiting for
// the matched workflows.
func (h *APIHandlers) RaiseTrigger(c fiber.Ctx) error {
	trigger := c.Params("trigger")
	if trigger == "" {
		return badRequest(c, "Trigger is required")
	}

	var req TriggerRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	tenantID := c.Params("tenantId")

	tc, err := h.loader.Load(c.Context(), req.Refs(tenantID))
	if err != nil {
		return internalError(c, err)
	}

	if tc.Tenant == nil {
		return notFound(c, "tenant "+tenantID+" not found")
	}

	err = h.emitter.EmitTrigger(context.WithoutCancel(c.Context()), trigger, tc)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(TriggerResponse{
		Trigger:  trigger,
		TenantID: tenantID,
		Accepted: true,
	})
}

var kindsByPath = map[string]models.EntityKind{
	"invoices": models.EntityInvoice,
	"bookings": models.EntityBooking,
	"payments": models.EntityPayment,
	"contacts": models.EntityContact,
}

func (h *APIHandlers) TransitionStatus(c fiber.Ctx) error {
	kind, ok := kindsByPath[c.Params("kind")]
	if !ok {
		return notFound(c, "unknown resource '"+c.Params("kind")+"'")
	}

	var req StatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.lifecycle.Transition(c.Context(), kind, c.Params("tenantId"), c.Params("id"), req.Status)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) ConvertContact(c fiber.Ctx) error {
	id := c.Params("id")

	converted, err := h.lifecycle.ConvertContact(c.Context(), c.Params("tenantId"), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ConvertResponse{ContactID: id, Converted: converted})
}

func (h *APIHandlers) ProcessPending(c fiber.Ctx) error {
	summary, err := h.pending.ProcessPendingWorkflows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(summary)
}
