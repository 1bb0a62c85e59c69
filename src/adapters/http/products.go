package http

import (
	"net/http"
	"strings"

	"florencia/src/domain"
	"florencia/src/domain/entities"
	"florencia/src/services/catalog"
	"florencia/src/services/validation"
)

// products devolve o último snapshot da assinatura; antes do primeiro snapshot faz uma leitura explícita.
func (s *Server) products(r *http.Request) ([]entities.Record, error) {
	if records, ok := s.catalogControl.Current(); ok {
		return catalog.Canonical(records), nil
	}

	if err := s.catalogControl.Refresh(r.Context()); err != nil {
		return nil, err
	}

	records, _ := s.catalogControl.Current()
	return catalog.Canonical(records), nil
}

func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	records, err := s.products(r)
	if err != nil {
		s.writeError(w, err, domain.NoticeCatalogLoad)
		return
	}

	filtered := catalog.Filter(records, r.URL.Query().Get("q"))
	s.writeNotice(w, http.StatusOK, noticeLoaded, MapRecordsToResponse(filtered))
}

// readProductForm aceita JSON ou multipart; só o multipart traz imagem.
func (s *Server) readProductForm(w http.ResponseWriter, r *http.Request) (validation.ProductForm, *domain.Image, bool) {
	var form validation.ProductForm

	if !isMultipart(r) {
		if err := decodeJSON(r, &form); err != nil {
			return form, nil, false
		}
		return form, nil, true
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		return form, nil, false
	}

	form = validation.ProductForm{
		Name:        r.FormValue("name"),
		Price:       r.FormValue("price"),
		Quantity:    r.FormValue("quantity"),
		Category:    r.FormValue("category"),
		Description: r.FormValue("description"),
	}

	image, err := readImage(r)
	if err != nil {
		return form, nil, false
	}
	return form, image, true
}

func (s *Server) AddProduct(w http.ResponseWriter, r *http.Request) {
	form, image, ok := s.readProductForm(w, r)
	if !ok {
		s.writeNotice(w, http.StatusBadRequest, noticeBadRequest, nil)
		return
	}

	result, err := s.catalog.AddProduct(r.Context(), form, image)
	if err != nil {
		s.writeError(w, err, domain.NoticeProductAdd)
		return
	}

	s.writeWriteResult(w, http.StatusCreated, domain.NoticeProductAdded, result)
}

func (s *Server) EditProduct(w http.ResponseWriter, r *http.Request) {
	identity := strings.TrimSpace(r.PathValue("id"))
	if identity == "" {
		s.writeNotice(w, http.StatusBadRequest, noticeBadRequest, nil)
		return
	}

	form, image, ok := s.readProductForm(w, r)
	if !ok {
		s.writeNotice(w, http.StatusBadRequest, noticeBadRequest, nil)
		return
	}

	result, err := s.catalog.EditProduct(r.Context(), identity, form, image)
	if err != nil {
		s.writeError(w, err, domain.NoticeProductEdit)
		return
	}

	s.writeWriteResult(w, http.StatusOK, domain.NoticeProductEdited, result)
}

// writeWriteResult confirma a gravação e anexa o aviso de upload quando a imagem falhou.
func (s *Server) writeWriteResult(w http.ResponseWriter, status int, notice domain.Notice, result catalog.WriteResult) {
	body := NoticeResponse{Notice: notice, Data: MapRecordToResponse(result.Product)}
	if result.MediaError != nil {
		warning := domain.NoticePhotoUpload
		body.Warning = &warning
	}
	s.writeJSON(w, status, body)
}

func (s *Server) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	identity := strings.TrimSpace(r.PathValue("id"))
	if identity == "" {
		s.writeNotice(w, http.StatusBadRequest, noticeBadRequest, nil)
		return
	}

	if err := s.catalogControl.DeleteEntity(r.Context(), identity); err != nil {
		s.writeError(w, err, domain.NoticeProductDelete)
		return
	}

	s.writeNotice(w, http.StatusOK, domain.NoticeProductDeleted, nil)
}
