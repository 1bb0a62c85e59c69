package http

import (
	"net/http"

	"florencia/src/domain"
	"florencia/src/services/synchronization"
	"florencia/src/services/validation"
)

func (s *Server) profileController(r *http.Request) (*synchronization.ProfileController, error) {
	session, ok := sessionFrom(r.Context())
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s.profiles.ForSession(session, nil)
}

// GetProfile trata cada leitura como um foco da tela: relê o Remote Store e devolve o registro mesclado.
func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	controller, err := s.profileController(r)
	if err != nil {
		s.writeError(w, err, domain.NoticeProfileLoad)
		return
	}

	if err := controller.Refresh(r.Context()); err != nil {
		s.writeError(w, err, domain.NoticeProfileLoad)
		return
	}

	record, ok := controller.Current()
	if !ok {
		s.writeNotice(w, http.StatusServiceUnavailable, domain.NoticeProfileLoad, nil)
		return
	}

	s.writeNotice(w, http.StatusOK, noticeLoaded, MapRecordToResponse(record))
}

func (s *Server) SaveProfile(w http.ResponseWriter, r *http.Request) {
	var form validation.ProfileForm
	if err := decodeJSON(r, &form); err != nil {
		s.writeNotice(w, http.StatusBadRequest, noticeBadRequest, nil)
		return
	}

	if err := form.Validate(); err != nil {
		s.writeError(w, err, domain.NoticeProfileSave)
		return
	}

	controller, err := s.profileController(r)
	if err != nil {
		s.writeError(w, err, domain.NoticeProfileSave)
		return
	}

	record, err := controller.Save(r.Context(), form.Fields())
	if err != nil {
		s.writeError(w, err, domain.NoticeProfileSave)
		return
	}

	s.writeNotice(w, http.StatusOK, domain.NoticeProfileSaved, MapRecordToResponse(record))
}

// UploadProfilePhoto envia a foto; a URL entra no próximo PUT /v1/profile.
func (s *Server) UploadProfilePhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		s.writeNotice(w, http.StatusBadRequest, noticeBadRequest, nil)
		return
	}

	image, err := readImage(r)
	if err != nil || image == nil {
		s.writeNotice(w, http.StatusBadRequest, noticeBadRequest, nil)
		return
	}

	controller, err := s.profileController(r)
	if err != nil {
		s.writeError(w, err, domain.NoticePhotoUpload)
		return
	}

	url, err := controller.UploadMedia(r.Context(), *image)
	if err != nil {
		s.writeError(w, err, domain.NoticePhotoUpload)
		return
	}

	s.writeNotice(w, http.StatusOK, domain.NoticePhotoUploaded, PhotoDTO{MediaRef: url})
}
