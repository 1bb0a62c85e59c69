package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"florencia/src/domain"
	"florencia/src/domain/entities"
	"florencia/src/services/validation"
)

type sessionKey struct{}

func sessionFrom(ctx context.Context) (entities.Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(entities.Session)
	return session, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}

// authenticated exige um token de sessão válido e o coloca no contexto da requisição.
func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.writeNotice(w, http.StatusUnauthorized, noticeUnauthorized, nil)
			return
		}

		session, err := s.identity.Authenticate(r.Context(), token)
		if err != nil {
			// sessão expirada ou removida: o controller de perfil dela não será mais usado
			if errors.Is(err, domain.ErrSessionNotFound) {
				s.profiles.Dispose(token)
			}
			s.writeError(w, err, noticeUnauthorized)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	}
}

func (s *Server) SignUp(w http.ResponseWriter, r *http.Request) {
	var form validation.SignUpForm
	if err := decodeJSON(r, &form); err != nil {
		s.writeNotice(w, http.StatusBadRequest, noticeBadRequest, nil)
		return
	}

	session, err := s.identity.SignUp(r.Context(), form)
	if err != nil {
		s.writeError(w, err, noticeBadRequest)
		return
	}

	s.writeNotice(w, http.StatusCreated, noticeRegistered, MapSessionToResponse(session))
}

func (s *Server) SignIn(w http.ResponseWriter, r *http.Request) {
	var form validation.SignInForm
	if err := decodeJSON(r, &form); err != nil {
		s.writeNotice(w, http.StatusBadRequest, noticeBadRequest, nil)
		return
	}

	session, err := s.identity.SignIn(r.Context(), form)
	if err != nil {
		s.writeError(w, err, noticeBadRequest)
		return
	}

	s.writeNotice(w, http.StatusOK, noticeWelcome, MapSessionToResponse(session))
}

func (s *Server) SignOut(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFrom(r.Context())

	if err := s.identity.SignOut(r.Context(), session.Token); err != nil {
		s.writeError(w, err, noticeBadRequest)
		return
	}

	s.writeNotice(w, http.StatusOK, noticeSignedOut, nil)
}
