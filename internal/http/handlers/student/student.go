// Package student contains the HTTP handlers for the Student resource.
//
// Every handler is built by a factory that receives its dependencies and
// returns the http.HandlerFunc the router calls on each request:
//
//	r.Get("/api/v1/students", student.GetList(svc))
//	//                               ^^^^^^^^^^^^
//	//                 GetList(svc) runs ONCE at startup; the returned
//	//                 func runs on EVERY request.
//
// Handlers only translate HTTP to service calls and back. All business
// rules live in the students service.
package student

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/school-students/internal/service/students"
	"github.com/aanand-mishra/school-students/internal/types"
	"github.com/aanand-mishra/school-students/internal/utils/response"
)

// Service is what the handlers need from the students service.
type Service interface {
	List(ctx context.Context, filter types.StudentFilter) ([]types.Student, error)
	Detail(ctx context.Context, id int64) (types.Student, error)
	Create(ctx context.Context, raw map[string]any) (students.Result, error)
	Update(ctx context.Context, raw map[string]any) (students.Result, error)
	SetStatus(ctx context.Context, change types.StatusChange) (students.Result, error)
}

var validate = validator.New()

// Register mounts the student routes on r.
//
//	GET    /api/v1/students              → list (filters: name, class, section, roll)
//	GET    /api/v1/students/{id}         → detail
//	POST   /api/v1/students              → create
//	PUT    /api/v1/students/{id}         → update
//	POST   /api/v1/students/{id}/status  → enable / disable
func Register(r chi.Router, svc Service) {
	r.Route("/api/v1/students", func(r chi.Router) {
		r.Get("/", GetList(svc))
		r.Post("/", New(svc))
		r.Get("/{id}", GetByID(svc))
		r.Put("/{id}", Update(svc))
		r.Post("/{id}/status", SetStatus(svc))
	})
}

// GetList handles GET /api/v1/students.
//
// An empty result is a 404 "Students not found", not an empty array.
func GetList(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("getting students")

		q := r.URL.Query()
		filter := types.StudentFilter{
			Name:    q.Get("name"),
			Class:   q.Get("class"),
			Section: q.Get("section"),
		}
		if roll := q.Get("roll"); roll != "" {
			n, err := strconv.ParseInt(roll, 10, 64)
			if err != nil {
				response.WriteJSON(w, http.StatusBadRequest,
					response.GeneralError(errors.New("invalid roll: must be an integer")))
				return
			}
			filter.Roll = &n
		}

		list, err := svc.List(r.Context(), filter)
		if err != nil {
			response.Error(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, map[string]any{"students": list})
	}
}

// GetByID handles GET /api/v1/students/{id}.
func GetByID(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("getting a student", slog.Int64("id", id))

		st, err := svc.Detail(r.Context(), id)
		if err != nil {
			response.Error(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, st)
	}
}

// New handles POST /api/v1/students.
//
// The body may use camelCase or snake_case keys (class, className or
// class_name, …); the service resolves them.
//
// Success response (201 Created):
//
//	{ "message": "Student added and verification email sent successfully." }
func New(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student")

		raw, ok := decodeBody(w, r)
		if !ok {
			return
		}

		res, err := svc.Create(r.Context(), raw)
		if err != nil {
			response.Error(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusCreated, res)
	}
}

// Update handles PUT /api/v1/students/{id}. The id in the path wins over
// any id in the body.
func Update(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("updating a student", slog.Int64("id", id))

		raw, ok := decodeBody(w, r)
		if !ok {
			return
		}
		raw["userId"] = id

		res, err := svc.Update(r.Context(), raw)
		if err != nil {
			response.Error(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, res)
	}
}

type statusRequest struct {
	Status     *bool `json:"status"     validate:"required"`
	ReviewerID int64 `json:"reviewerId" validate:"required,gt=0"`
}

// SetStatus handles POST /api/v1/students/{id}/status.
//
// Request body (JSON):
//
//	{ "status": false, "reviewerId": 1 }
func SetStatus(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("changing student status", slog.Int64("id", id))

		var req statusRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("request body is empty")))
			return
		}
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		if err := validate.Struct(req); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(verrs))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		res, err := svc.SetStatus(r.Context(), types.StatusChange{
			UserID:     id,
			ReviewerID: req.ReviewerID,
			Status:     *req.Status,
		})
		if err != nil {
			response.Error(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, res)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("invalid id: must be a positive integer")))
		return 0, false
	}
	return id, true
}

// decodeBody reads a JSON object. Numbers are kept as json.Number so large
// ids survive intact.
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var raw map[string]any
	err := dec.Decode(&raw)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("request body is empty")))
		return nil, false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return nil, false
	}
	if raw == nil {
		// The body was a literal null.
		raw = map[string]any{}
	}
	return raw, true
}
