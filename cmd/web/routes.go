package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/anshumansaged/kyokushin--sub000/internal/bout"
	"github.com/anshumansaged/kyokushin--sub000/internal/bracket"
	"github.com/anshumansaged/kyokushin--sub000/internal/db"
	"github.com/anshumansaged/kyokushin--sub000/internal/httputil"
	"github.com/anshumansaged/kyokushin--sub000/internal/middleware"
	"github.com/anshumansaged/kyokushin--sub000/internal/rules"
	"github.com/anshumansaged/kyokushin--sub000/internal/service"
	"github.com/anshumansaged/kyokushin--sub000/internal/store"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/markbates/goth/gothic"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httputil.BadRequest(w, "Invalid JSON body", err)
		return false
	}
	return true
}

// decodeOptionalJSON tolerates an absent body but rejects a malformed one.
func decodeOptionalJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid JSON body", bout.ErrValidation)
	}
	return nil
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httputil.BadRequest(w, "Invalid id", err)
		return uuid.Nil, false
	}
	return id, true
}

type createBracketRequest struct {
	Category          string `json:"category"`
	Type              string `json:"type"`
	MatchDurationSecs int    `json:"match_duration_secs"`
	ExtensionSecs     int    `json:"extension_secs"`
	AllowExtensions   bool   `json:"allow_extensions"`
	MaxExtensions     int    `json:"max_extensions"`
	ThirdPlaceMatch   bool   `json:"third_place_match"`
	Participants      []struct {
		UserID   *uuid.UUID `json:"user_id"`
		Name     string     `json:"name"`
		Dojo     string     `json:"dojo"`
		Belt     string     `json:"belt"`
		WeightKg float64    `json:"weight_kg"`
		Seed     *int       `json:"seed"`
	} `json:"participants"`
}

type advanceRequest struct {
	WinnerID uuid.UUID `json:"winner_id"`
}

type createBoutRequest struct {
	MatchID      uuid.UUID  `json:"match_id"`
	RefereeID    uuid.UUID  `json:"referee_id"`
	Judge1ID     *uuid.UUID `json:"judge_1_id"`
	Judge2ID     *uuid.UUID `json:"judge_2_id"`
	TimekeeperID *uuid.UUID `json:"timekeeper_id"`
	RecorderID   *uuid.UUID `json:"recorder_id"`
}

type scoreRequest struct {
	Corner    string `json:"corner"`
	Type      string `json:"type"`
	Technique string `json:"technique"`
	Target    string `json:"target"`
}

type penaltyRequest struct {
	Corner string `json:"corner"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type incidentRequest struct {
	Corner      string `json:"corner"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type extensionRequest struct {
	DurationSecs int    `json:"duration_secs"`
	Reason       string `json:"reason"`
}

type endBoutRequest struct {
	Winner string `json:"winner"`
	Method string `json:"method"`
	Notes  string `json:"notes"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func newRouter(sessionManager *scs.SessionManager) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(sessionManager.LoadAndSave)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessionManager, store.NewUserStore(db.GetDB())))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Post("/brackets", func(w http.ResponseWriter, r *http.Request) {
				dbConn := db.GetDB()
				bracketService := service.NewBracketService(dbConn, store.NewBracketStore(dbConn))

				var req createBracketRequest
				if !decodeJSON(w, r, &req) {
					return
				}

				input := service.CreateBracketInput{
					Category:          req.Category,
					Type:              bracket.BracketType(req.Type),
					MatchDurationSecs: req.MatchDurationSecs,
					ExtensionSecs:     req.ExtensionSecs,
					AllowExtensions:   req.AllowExtensions,
					MaxExtensions:     req.MaxExtensions,
					ThirdPlaceMatch:   req.ThirdPlaceMatch,
				}
				for _, p := range req.Participants {
					input.Participants = append(input.Participants, service.ParticipantInput{
						UserID:   p.UserID,
						Name:     p.Name,
						Dojo:     p.Dojo,
						Belt:     p.Belt,
						WeightKg: p.WeightKg,
						Seed:     p.Seed,
					})
				}

				id, err := bracketService.CreateBracket(r.Context(), input)
				if err != nil {
					httputil.WriteError(w, err)
					return
				}
				writeJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
			})

			r.Post("/brackets/{id}/generate", func(w http.ResponseWriter, r *http.Request) {
				dbConn := db.GetDB()
				bracketService := service.NewBracketService(dbConn, store.NewBracketStore(dbConn))

				id, ok := parseID(w, r, "id")
				if !ok {
					return
				}
				if err := bracketService.GenerateBracket(r.Context(), id); err != nil {
					httputil.WriteError(w, err)
					return
				}
				data, err := bracketService.GetBracketData(r.Context(), id.String())
				if err != nil {
					httputil.WriteError(w, err)
					return
				}
				writeJSON(w, http.StatusOK, data)
			})
		})

		r.Get("/brackets", func(w http.ResponseWriter, r *http.Request) {
			dbConn := db.GetDB()
			bracketService := service.NewBracketService(dbConn, store.NewBracketStore(dbConn))

			brackets, err := bracketService.GetBracketsForCreator(r.Context())
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, brackets)
		})

		r.Get("/brackets/{id}", func(w http.ResponseWriter, r *http.Request) {
			dbConn := db.GetDB()
			bracketService := service.NewBracketService(dbConn, store.NewBracketStore(dbConn))

			id, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			data, err := bracketService.GetBracketData(r.Context(), id.String())
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, data)
		})

		r.Post("/brackets/{id}/completion-check", func(w http.ResponseWriter, r *http.Request) {
			dbConn := db.GetDB()
			matchService := service.NewMatchService(dbConn, store.NewBracketStore(dbConn))

			id, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			if err := matchService.CheckBracketCompletion(r.Context(), id); err != nil {
				httputil.WriteError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Get("/brackets/{id}/bouts", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			bouts, err := newBoutService().GetBoutsForBracket(r.Context(), id.String())
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, bouts)
		})

		r.Get("/matches/{id}", func(w http.ResponseWriter, r *http.Request) {
			dbConn := db.GetDB()
			matchService := service.NewMatchService(dbConn, store.NewBracketStore(dbConn))

			id, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			m, err := matchService.GetMatch(r.Context(), id.String())
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, m)
		})

		r.Post("/matches/{id}/advance", func(w http.ResponseWriter, r *http.Request) {
			dbConn := db.GetDB()
			matchService := service.NewMatchService(dbConn, store.NewBracketStore(dbConn))

			id, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			var req advanceRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			bracketID, err := matchService.AdvanceWinner(r.Context(), id, req.WinnerID)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"bracket_id": bracketID.String()})
		})

		r.Post("/matches/{id}/walkover", func(w http.ResponseWriter, r *http.Request) {
			dbConn := db.GetDB()
			matchService := service.NewMatchService(dbConn, store.NewBracketStore(dbConn))

			id, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			var req advanceRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			bracketID, err := matchService.DeclareWalkover(r.Context(), id, req.WinnerID)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"bracket_id": bracketID.String()})
		})

		r.Post("/bouts", func(w http.ResponseWriter, r *http.Request) {
			boutService := newBoutService()

			var req createBoutRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			id, err := boutService.CreateBout(r.Context(), service.CreateBoutInput{
				MatchID:      req.MatchID,
				RefereeID:    req.RefereeID,
				Judge1ID:     req.Judge1ID,
				Judge2ID:     req.Judge2ID,
				TimekeeperID: req.TimekeeperID,
				RecorderID:   req.RecorderID,
			})
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
		})

		r.Get("/bouts/{id}", func(w http.ResponseWriter, r *http.Request) {
			boutService := newBoutService()

			id, ok := parseID(w, r, "id")
			if !ok {
				return
			}
			data, err := boutService.GetBoutData(r.Context(), id.String())
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, data)
		})

		boutAction := func(action func(ctx context.Context, id uuid.UUID, r *http.Request) (*bout.Bout, error)) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				id, ok := parseID(w, r, "id")
				if !ok {
					return
				}
				b, err := action(r.Context(), id, r)
				if err != nil {
					httputil.WriteError(w, err)
					return
				}
				writeJSON(w, http.StatusOK, b)
			}
		}

		r.Post("/bouts/{id}/ready", boutAction(func(ctx context.Context, id uuid.UUID, r *http.Request) (*bout.Bout, error) {
			return newBoutService().ReadyBout(ctx, id)
		}))

		r.Post("/bouts/{id}/start", boutAction(func(ctx context.Context, id uuid.UUID, r *http.Request) (*bout.Bout, error) {
			return newBoutService().StartBout(ctx, id)
		}))

		r.Post("/bouts/{id}/pause", boutAction(func(ctx context.Context, id uuid.UUID, r *http.Request) (*bout.Bout, error) {
			var req reasonRequest
			if err := decodeOptionalJSON(r, &req); err != nil {
				return nil, err
			}
			return newBoutService().PauseBout(ctx, id, req.Reason)
		}))

		r.Post("/bouts/{id}/resume", boutAction(func(ctx context.Context, id uuid.UUID, r *http.Request) (*bout.Bout, error) {
			return newBoutService().ResumeBout(ctx, id)
		}))

		r.Post("/bouts/{id}/extensions", boutAction(func(ctx context.Context, id uuid.UUID, r *http.Request) (*bout.Bout, error) {
			var req extensionRequest
			if err := decodeOptionalJSON(r, &req); err != nil {
				return nil, err
			}
			return newBoutService().AddExtension(ctx, id, req.DurationSecs, req.Reason)
		}))

		r.Post("/bouts/{id}/scores", boutAction(func(ctx context.Context, id uuid.UUID, r *http.Request) (*bout.Bout, error) {
			var req scoreRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, bout.ErrValidation
			}
			return newBoutService().ScorePoint(ctx, id, bout.Corner(req.Corner), rules.ScoreType(req.Type), req.Technique, req.Target)
		}))

		r.Post("/bouts/{id}/penalties", boutAction(func(ctx context.Context, id uuid.UUID, r *http.Request) (*bout.Bout, error) {
			var req penaltyRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, bout.ErrValidation
			}
			return newBoutService().AddPenalty(ctx, id, bout.Corner(req.Corner), rules.PenaltyType(req.Type), req.Reason)
		}))

		r.Post("/bouts/{id}/incidents", boutAction(func(ctx context.Context, id uuid.UUID, r *http.Request) (*bout.Bout, error) {
			var req incidentRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, bout.ErrValidation
			}
			corner := bout.CornerRef(req.Corner)
			if corner == "" {
				corner = bout.CornerRefNone
			}
			return newBoutService().RecordIncident(ctx, id, corner, bout.EventType(req.Type), req.Description)
		}))

		r.Post("/bouts/{id}/end", boutAction(func(ctx context.Context, id uuid.UUID, r *http.Request) (*bout.Bout, error) {
			var req endBoutRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, bout.ErrValidation
			}
			return newBoutService().EndBout(ctx, id, bout.Corner(req.Winner), req.Method, req.Notes)
		}))

		r.Post("/bouts/{id}/cancel", boutAction(func(ctx context.Context, id uuid.UUID, r *http.Request) (*bout.Bout, error) {
			return newBoutService().CancelBout(ctx, id)
		}))

		r.Post("/bouts/{id}/postpone", boutAction(func(ctx context.Context, id uuid.UUID, r *http.Request) (*bout.Bout, error) {
			return newBoutService().PostponeBout(ctx, id)
		}))
	})

	r.Get("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothic.BeginAuthHandler(w, r)
	})

	r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothUser, err := gothic.CompleteUserAuth(w, r)
		if err != nil {
			httputil.BadRequest(w, "Authentication failure", err)
			return
		}

		dbConn := db.GetDB()
		officialService := service.NewOfficialService(dbConn, store.NewUserStore(dbConn))
		user, err := officialService.FindOrCreateOfficialByProvider(r.Context(), gothUser)
		if err != nil {
			httputil.InternalServerError(w, "Failed to find or create official", err)
			return
		}

		sessionManager.Put(r.Context(), "userID", user.ID.String())

		writeJSON(w, http.StatusOK, map[string]string{"id": user.ID.String(), "username": user.Username})
	})

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		sessionManager.Destroy(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

func newBoutService() *service.BoutService {
	dbConn := db.GetDB()
	brackets := store.NewBracketStore(dbConn)
	return service.NewBoutService(dbConn, store.NewBoutStore(dbConn), brackets, service.NewMatchService(dbConn, brackets))
}
