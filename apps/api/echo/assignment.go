package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shuleapp/shule/core"
	"github.com/shuleapp/shule/core/assignment"
	"github.com/shuleapp/shule/core/distribution"
	"github.com/shuleapp/shule/core/user"
)

type assignmentApi struct {
	svc        *assignment.Service
	engine     *distribution.Engine
	clock      core.Clock
	validate   *validator.Validate
	translator ut.Translator
}

func registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := assignmentApi{
		svc:        deps.AssignmentSvc,
		engine:     deps.Engine,
		clock:      deps.Clock,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	ag := g.Group("/assignments", jwt)

	ag.GET("", api.query)
	ag.POST("", api.create, requireRoles(user.RoleTeacher))
	ag.POST("/repair", api.repair, requireRoles())

	dg := ag.Group("/:id")
	dg.GET("", api.retrieve)
	dg.POST("/active", api.setActive, requireRoles(user.RoleTeacher))
	dg.DELETE("", api.destroy, requireRoles(user.RoleTeacher))
	dg.POST("/submissions", api.submit, requireRoles(user.RoleStudent))
	dg.GET("/submissions", api.querySubmissions, requireRoles(user.RoleTeacher))

	sg := g.Group("/submissions", jwt)
	sg.POST("/:id/grade", api.grade, requireRoles(user.RoleTeacher))
}

// Handlers

// create stores the assignment and immediately fans it out to the matching
// cohort.
func (api *assignmentApi) create(ctx echo.Context) error {
	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if data.TeacherID == "" {
		data.TeacherID = claims.Subject
	}
	// teachers may only publish their own assignments
	if !claims.IsAdmin && data.TeacherID != claims.Subject {
		return errHttpForbidden
	}

	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}

	res, err := api.engine.Distribute(ctx.Request().Context(), a.ID)
	if err != nil {
		return errors.Wrap(err, "distributing assignment")
	}

	return ctx.JSON(http.StatusCreated, CreateAssignmentResponse{
		Assignment:   api.render(a),
		Distribution: res,
	})
}

func (api *assignmentApi) query(ctx echo.Context) error {
	filter := new(AssignmentFilterRequest)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []AssignmentResponse{})
	}

	assignments, err := api.svc.Filter(ctx.Request().Context(), assignment.Filter{
		TeacherID: filter.TeacherID,
		Subject:   filter.Subject,
		IsActive:  filter.IsActive,
	})
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}

	out := make([]AssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, api.render(a))
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	a, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding assignment by ID")
	}
	return ctx.JSON(http.StatusOK, api.render(a))
}

func (api *assignmentApi) setActive(ctx echo.Context) error {
	var data ActiveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ActiveRequest")
	}

	a, err := api.svc.SetActive(ctx.Request().Context(), ctx.Param("id"), data.Active)
	if err != nil {
		return errors.Wrap(err, "setting assignment status")
	}
	return ctx.JSON(http.StatusOK, api.render(a))
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// submit accepts a student's file for the assignment. Resubmission replaces
// the previous file and resets any grade.
func (api *assignmentApi) submit(ctx echo.Context) error {
	var data SubmitRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitRequest")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ns := assignment.NewSubmission{
		AssignmentID: ctx.Param("id"),
		StudentID:    claims.Subject,
		FilePath:     data.FilePath,
	}
	if err := ns.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), ns)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *assignmentApi) querySubmissions(ctx echo.Context) error {
	subs, err := api.svc.Submissions(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []assignment.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *assignmentApi) grade(ctx echo.Context) error {
	var data GradeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeRequest")
	}

	sub, err := api.svc.Grade(ctx.Request().Context(), ctx.Param("id"), data.Score, data.Feedback)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

// repair back-fills new-assignment notifications missed by students.
func (api *assignmentApi) repair(ctx echo.Context) error {
	res, err := api.engine.RepairMissing(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "repairing notifications")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *assignmentApi) render(a assignment.Assignment) AssignmentResponse {
	return AssignmentResponse{
		Assignment:   a,
		PeriodStatus: a.PeriodStatus(api.clock.Now()),
	}
}

type (
	AssignmentResponse struct {
		assignment.Assignment
		PeriodStatus core.PeriodStatus `json:"period_status"`
	}

	CreateAssignmentResponse struct {
		Assignment   AssignmentResponse  `json:"assignment"`
		Distribution distribution.Result `json:"distribution"`
	}

	AssignmentFilterRequest struct {
		TeacherID string `query:"teacher_id"`
		Subject   string `query:"subject"`
		IsActive  *bool  `query:"is_active"`
	}

	SubmitRequest struct {
		FilePath string `json:"file_path"`
	}

	GradeRequest struct {
		Score    int    `json:"score"`
		Feedback string `json:"feedback"`
	}
)
