package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"florencia/src/domain"
	"florencia/src/services/identity"
	"florencia/src/services/validation"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, body NoticeResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeNotice(w http.ResponseWriter, status int, notice domain.Notice, data interface{}) {
	s.writeJSON(w, status, NoticeResponse{Notice: notice, Data: data})
}

// writeError traduz o erro para o status e o alerta correspondentes. fallback é usado para falhas do Remote Store.
func (s *Server) writeError(w http.ResponseWriter, err error, fallback domain.Notice) {
	var (
		validationErrs validation.Errors
		authErr        *identity.AuthError
		uploadErr      *domain.MediaUploadError
	)

	switch {
	case errors.As(err, &validationErrs):
		s.writeJSON(w, http.StatusBadRequest, NoticeResponse{
			Notice: domain.Notice{Kind: domain.NoticeError, Title: "Error", Message: validationErrs.First()},
			Errors: validationErrs,
		})
	case errors.As(err, &authErr):
		s.writeNotice(w, authStatus(authErr), authErr.Notice, nil)
	case errors.Is(err, domain.ErrSessionNotFound):
		s.writeNotice(w, http.StatusUnauthorized, noticeUnauthorized, nil)
	case errors.Is(err, domain.ErrWriteInFlight):
		s.writeNotice(w, http.StatusConflict, domain.NoticeWriteInFlight, nil)
	case errors.Is(err, domain.ErrRecordNotFound):
		s.writeNotice(w, http.StatusNotFound, noticeNotFound, nil)
	case errors.Is(err, domain.ErrMissingIdentity):
		s.writeNotice(w, http.StatusBadRequest, noticeBadRequest, nil)
	case errors.As(err, &uploadErr):
		s.writeNotice(w, http.StatusBadGateway, domain.NoticePhotoUpload, nil)
	default:
		s.logger.Error("request failed", "error", err)
		s.writeNotice(w, http.StatusServiceUnavailable, fallback, nil)
	}
}

func authStatus(err *identity.AuthError) int {
	switch domain.IdentityCode(err) {
	case domain.CodeEmailInUse:
		return http.StatusConflict
	case domain.CodeWrongSecret, domain.CodeAccountMissing:
		return http.StatusUnauthorized
	case domain.CodeNetworkFailure:
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}

var (
	noticeUnauthorized = domain.Notice{Kind: domain.NoticeError, Title: "Error de acceso", Message: "Debe iniciar sesión para continuar."}
	noticeNotFound     = domain.Notice{Kind: domain.NoticeError, Title: "Error", Message: "No se encontró el registro."}
	noticeBadRequest   = domain.Notice{Kind: domain.NoticeError, Title: "Error", Message: "La solicitud no es válida."}
	noticeSignedOut    = domain.Notice{Kind: domain.NoticeSuccess, Title: "Sesión cerrada", Message: "Hasta pronto."}
	noticeWelcome      = domain.Notice{Kind: domain.NoticeSuccess, Title: "Bienvenido", Message: "Sesión iniciada correctamente."}
	noticeRegistered   = domain.Notice{Kind: domain.NoticeSuccess, Title: "Éxito", Message: "Usuario registrado correctamente."}
	noticeLoaded       = domain.Notice{Kind: domain.NoticeInfo, Title: "OK"}
)

func decodeJSON(r *http.Request, target interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := decoder.Decode(target); err != nil {
		return err
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// readImage lê a parte "file" de um formulário multipart já parseado. Sem arquivo retorna nil.
func readImage(r *http.Request) (*domain.Image, error) {
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &domain.Image{Data: data, ContentType: contentType, FileName: header.Filename}, nil
}
