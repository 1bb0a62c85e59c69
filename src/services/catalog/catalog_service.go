package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"florencia/src/domain"
	"florencia/src/domain/entities"
	"florencia/src/helper/config"
	"florencia/src/services/merge"
	"florencia/src/services/validation"
)

type CatalogService struct {
	store    domain.RecordStore
	uploader domain.MediaUploader
	settings config.Catalog
	timeout  time.Duration
	logger   *slog.Logger
}

// WriteResult carrega o produto gravado e, separadamente, a falha do upload da imagem.
// Um upload que falha não impede a gravação dos demais campos.
type WriteResult struct {
	Product    entities.Record `json:"product"`
	MediaError error           `json:"-"`
}

func NewCatalogService(
	store domain.RecordStore,
	uploader domain.MediaUploader,
	settings config.Catalog,
	timeout time.Duration,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		store:    store,
		uploader: uploader,
		settings: settings,
		timeout:  timeout,
		logger:   logger,
	}
}

func (s *CatalogService) Settings() config.Catalog {
	return s.settings
}

func (s *CatalogService) AddProduct(ctx context.Context, form validation.ProductForm, image *domain.Image) (WriteResult, error) {
	if err := form.Validate(s.settings.Categories); err != nil {
		return WriteResult{}, err
	}

	identity := uuid.NewString()
	fields := form.Fields()
	fields[entities.FieldActive] = true
	fields[entities.FieldMediaRef] = ""
	if _, ok := fields[entities.FieldQuantity]; !ok {
		fields[entities.FieldQuantity] = float64(0)
	}

	var result WriteResult
	if url, err := s.upload(ctx, image); err != nil {
		result.MediaError = err
	} else if url != "" {
		fields[entities.FieldMediaRef] = url
	}

	if err := s.put(ctx, identity, fields, false); err != nil {
		return WriteResult{}, err
	}

	product, err := s.GetProduct(ctx, identity)
	if err != nil {
		// gravado, mas a releitura falhou: devolve o que foi enviado
		s.logger.Warn("product saved but could not be read back", "identity", identity, "error", err)
		product = merge.Merge(entities.ProductSchema, merge.Sources{Navigation: &entities.Record{Identity: identity, Fields: fields}})
	}

	result.Product = product
	s.logger.Info("product added", "identity", identity, "category", fields[entities.FieldCategory])
	return result, nil
}

// EditProduct grava os campos do formulário sobre o produto existente.
// O mediaRef anterior só muda quando um novo upload termina com sucesso.
func (s *CatalogService) EditProduct(ctx context.Context, identity string, form validation.ProductForm, image *domain.Image) (WriteResult, error) {
	if err := form.Validate(s.settings.Categories); err != nil {
		return WriteResult{}, err
	}

	existing, err := s.GetProduct(ctx, identity)
	if err != nil {
		return WriteResult{}, err
	}

	fields := form.Fields()

	var result WriteResult
	if url, err := s.upload(ctx, image); err != nil {
		result.MediaError = err
	} else if url != "" {
		fields[entities.FieldMediaRef] = url
	}

	if err := s.put(ctx, identity, fields, true); err != nil {
		return WriteResult{}, err
	}

	result.Product = merge.Apply(entities.ProductSchema, existing, fields)
	return result, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, identity string) error {
	if identity == "" {
		return domain.ErrMissingIdentity
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.DeleteRecord(ctx, entities.CollectionProducts, identity); err != nil {
		s.logger.Error("failed to delete product", "collection", entities.CollectionProducts, "identity", identity, "error", err)
		return fmt.Errorf("CatalogService.DeleteProduct - failed to delete %s: %w", identity, err)
	}
	return nil
}

func (s *CatalogService) GetProduct(ctx context.Context, identity string) (entities.Record, error) {
	if identity == "" {
		return entities.Record{}, domain.ErrMissingIdentity
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	remote, found, err := s.store.GetRecord(ctx, entities.CollectionProducts, identity)
	if err != nil {
		return entities.Record{}, fmt.Errorf("CatalogService.GetProduct - failed to read %s: %w", identity, err)
	}
	if !found {
		return entities.Record{}, domain.ErrRecordNotFound
	}

	return merge.Merge(entities.ProductSchema, merge.Sources{Remote: &remote}), nil
}

func (s *CatalogService) ListProducts(ctx context.Context, query string) ([]entities.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	records, err := s.store.QueryAll(ctx, entities.CollectionProducts)
	if err != nil {
		return nil, fmt.Errorf("CatalogService.ListProducts - failed to query products: %w", err)
	}

	return Filter(Canonical(records), query), nil
}

// Canonical aplica o schema de produto a cada registro e ordena por recência.
func Canonical(records []entities.Record) []entities.Record {
	canonical := make([]entities.Record, len(records))
	for i := range records {
		canonical[i] = merge.Merge(entities.ProductSchema, merge.Sources{Remote: &records[i]})
	}
	entities.SortByRecency(canonical)
	return canonical
}

func (s *CatalogService) upload(ctx context.Context, image *domain.Image) (string, error) {
	if image == nil || len(image.Data) == 0 {
		return "", nil
	}
	if s.uploader == nil {
		return "", &domain.MediaUploadError{Reason: "no media uploader configured"}
	}

	url, err := s.uploader.Upload(ctx, *image)
	if err != nil {
		s.logger.Error("failed to upload product image", "error", err)

		var uploadErr *domain.MediaUploadError
		if !errors.As(err, &uploadErr) {
			err = &domain.MediaUploadError{Reason: "upload failed", Err: err}
		}
		return "", err
	}
	return url, nil
}

func (s *CatalogService) put(ctx context.Context, identity string, fields entities.Fields, mergeExisting bool) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.PutRecord(ctx, entities.CollectionProducts, identity, fields, mergeExisting); err != nil {
		s.logger.Error("failed to save product", "collection", entities.CollectionProducts, "identity", identity, "error", err)

		var storeErr *domain.StoreError
		if errors.As(err, &storeErr) {
			return err
		}
		return &domain.StoreError{Op: "put", Collection: entities.CollectionProducts, Identity: identity, Err: err}
	}
	return nil
}
