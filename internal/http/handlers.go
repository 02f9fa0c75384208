package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hperssn/physiovr/internal/domain"
	"github.com/hperssn/physiovr/internal/runner"
	"github.com/hperssn/physiovr/internal/storage"
)

func listExercises(catalog *domain.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		exercises := catalog.List()
		out := make([]exerciseDTO, 0, len(exercises))
		for _, e := range exercises {
			out = append(out, toExerciseDTO(e, false))
		}
		respondJSON(w, out, http.StatusOK)
	}
}

func getExercise(catalog *domain.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := domain.ExerciseID(chi.URLParam(r, "id"))

		e, ok := catalog.Get(id)
		if !ok {
			respondError(w, "exercise not found", http.StatusNotFound)
			return
		}

		respondJSON(w, toExerciseDTO(e, true), http.StatusOK)
	}
}

func getSession(m *runner.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		machine := m.Get(GetUserID(r))
		respondJSON(w, sessionResponse{Session: toSessionDTO(machine.Snapshot())}, http.StatusOK)
	}
}

// transition runs op against the caller's machine and answers with the
// resulting state. Precondition failures leave the state untouched and are
// reported in the ignored field only.
func transition(m *runner.SessionManager, logger *slog.Logger, op func(*runner.Machine) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		machine := m.Get(GetUserID(r))

		resp := sessionResponse{}
		if err := op(machine); err != nil {
			if errors.Is(err, runner.ErrClosed) {
				respondError(w, "session closed", http.StatusGone)
				return
			}
			logger.Debug("transition ignored", "user", GetUserID(r), "path", r.URL.Path, "reason", err)
			resp.Ignored = err.Error()
		}

		resp.Session = toSessionDTO(machine.Snapshot())
		respondJSON(w, resp, http.StatusOK)
	}
}

func selectExercise(m *runner.SessionManager, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ExerciseID string `json:"exerciseId"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.ExerciseID == "" {
			respondError(w, "exerciseId is required", http.StatusBadRequest)
			return
		}

		transition(m, logger, func(machine *runner.Machine) error {
			return machine.SelectExercise(domain.ExerciseID(req.ExerciseID))
		})(w, r)
	}
}

func updateSettings(m *runner.SessionManager, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Difficulty   *string `json:"difficulty"`
			Environment  *string `json:"environment"`
			AudioEnabled *bool   `json:"audioEnabled"`
			VRSupported  *bool   `json:"vrSupported"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, "invalid request body", http.StatusBadRequest)
			return
		}

		var (
			difficulty  domain.Difficulty
			environment domain.Environment
			err         error
		)
		if req.Difficulty != nil {
			if difficulty, err = domain.ParseDifficulty(*req.Difficulty); err != nil {
				respondError(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		if req.Environment != nil {
			if environment, err = domain.ParseEnvironment(*req.Environment); err != nil {
				respondError(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		transition(m, logger, func(machine *runner.Machine) error {
			if req.Difficulty != nil {
				if err := machine.SetDifficulty(difficulty); err != nil {
					return err
				}
			}
			if req.Environment != nil {
				if err := machine.SetEnvironment(environment); err != nil {
					return err
				}
			}
			if req.AudioEnabled != nil {
				if err := machine.SetAudioEnabled(*req.AudioEnabled); err != nil {
					return err
				}
			}
			if req.VRSupported != nil {
				return machine.SetVRSupported(*req.VRSupported)
			}
			return nil
		})(w, r)
	}
}

func getHistory(repo storage.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := GetUserID(r)

		var (
			records []storage.SessionRecord
			err     error
		)
		if raw := r.URL.Query().Get("since"); raw != "" {
			since, perr := time.Parse(time.RFC3339, raw)
			if perr != nil {
				respondError(w, "since must be an RFC3339 timestamp", http.StatusBadRequest)
				return
			}
			records, err = repo.GetRecentSessions(r.Context(), userID, since)
		} else {
			records, err = repo.GetSessionsByUser(r.Context(), userID)
		}
		if err != nil {
			respondError(w, "failed to load history", http.StatusInternalServerError)
			return
		}

		if records == nil {
			records = []storage.SessionRecord{}
		}
		respondJSON(w, records, http.StatusOK)
	}
}

func getStats(repo storage.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := repo.GetSessionStats(r.Context(), GetUserID(r))
		if err != nil {
			respondError(w, "failed to load stats", http.StatusInternalServerError)
			return
		}
		respondJSON(w, stats, http.StatusOK)
	}
}

func health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
