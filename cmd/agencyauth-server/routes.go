package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	agencyAuth "github.com/MrEthical07/agencyAuth"
	"github.com/MrEthical07/agencyAuth/metrics/export/prometheus"
	"github.com/MrEthical07/agencyAuth/middleware"
	"github.com/MrEthical07/agencyAuth/password"
)

func newRouter(engine *agencyAuth.Engine, log logrus.FieldLogger) http.Handler {
	routes := engine.Routes()
	r := mux.NewRouter()

	r.Handle("/metrics", prometheus.Handler(engine)).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)

	r.HandleFunc(routes.LoginPath, loginPage(engine)).Methods(http.MethodGet)
	r.Handle(routes.LoginPath, middleware.Capture(engine)(loginSubmit(engine))).Methods(http.MethodPost)
	r.HandleFunc("/logout", logout(engine, log)).Methods(http.MethodPost)
	r.HandleFunc("/register", registerPage(engine, log)).Methods(http.MethodGet)
	r.HandleFunc("/register", registerSubmit(engine)).Methods(http.MethodPost)

	r.Handle(routes.EmployeeLanding, middleware.RequireLogin(engine)(http.HandlerFunc(whoami))).Methods(http.MethodGet)
	if routes.AdminLanding != routes.EmployeeLanding {
		r.Handle(routes.AdminLanding, middleware.RequireFinancial(engine)(http.HandlerFunc(whoami))).Methods(http.MethodGet)
	}
	r.Handle("/admin", middleware.RequireAdmin(engine)(http.HandlerFunc(whoami))).Methods(http.MethodGet)

	api := r.PathPrefix(strings.TrimSuffix(routes.APIPrefix, "/")).Subrouter()
	api.Handle("/me", middleware.RequireLogin(engine)(http.HandlerFunc(whoami))).Methods(http.MethodGet)
	api.Handle("/reports", middleware.RequireFinancial(engine)(http.HandlerFunc(whoami))).Methods(http.MethodGet)

	return r
}

type pageBody struct {
	Flash   *middleware.Flash         `json:"flash,omitempty"`
	Parents []agencyAuth.ParentEntity `json:"parents,omitempty"`
}

func loginPage(engine *agencyAuth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body pageBody
		if f, ok := middleware.PopFlash(w, r, engine.CookiePolicy()); ok {
			body.Flash = &f
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func loginSubmit(engine *agencyAuth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		res, _ := engine.Authenticate(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
		target := middleware.CompleteLogin(w, engine, res)
		if target == "" {
			target = engine.Routes().LoginPath
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

func logout(engine *agencyAuth.Engine, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := middleware.CompleteLogout(w, r, engine); err != nil {
			log.WithError(err).Warn("logout failed")
		}
		http.Redirect(w, r, engine.Routes().LoginPath, http.StatusSeeOther)
	}
}

func registerPage(engine *agencyAuth.Engine, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body pageBody
		if f, ok := middleware.PopFlash(w, r, engine.CookiePolicy()); ok {
			body.Flash = &f
		}
		parents, err := engine.ActiveParentEntities(r.Context())
		if err != nil {
			log.WithError(err).Warn("parent entity listing failed")
		}
		body.Parents = parents
		writeJSON(w, http.StatusOK, body)
	}
}

func registerSubmit(engine *agencyAuth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_, err := engine.Register(r.Context(), agencyAuth.RegisterRequest{
			Email:           r.PostFormValue("email"),
			Password:        r.PostFormValue("password"),
			PasswordConfirm: r.PostFormValue("password_confirm"),
			FirstName:       r.PostFormValue("first_name"),
			LastName:        r.PostFormValue("last_name"),
			Phone:           r.PostFormValue("phone"),
			ParentEntityID:  r.PostFormValue("parent_entity_id"),
		})
		policy := engine.CookiePolicy()
		if err != nil {
			middleware.SetFlash(w, policy, middleware.FlashError, engine.RegistrationMessage(err))
			http.Redirect(w, r, "/register", http.StatusSeeOther)
			return
		}
		middleware.SetFlash(w, policy, middleware.FlashSuccess, engine.RegistrationMessage(nil))
		http.Redirect(w, r, engine.Routes().LoginPath, http.StatusSeeOther)
	}
}

func whoami(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"subject_id":    id.SubjectID,
		"role":          id.Role.String(),
		"first_name":    id.FirstName,
		"email":         id.Email,
		"parent_entity": id.ParentEntityName,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// hashWith hashes secret with the engine's current Argon2id parameters.
func hashWith(cfg agencyAuth.Config, secret string) (string, error) {
	h, err := password.NewHasher(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		return "", err
	}
	return h.Hash(secret)
}
