package repository

import (
	"context"

	"github.com/garcia-cyber/popcornRDC/internal/dto"
	"github.com/garcia-cyber/popcornRDC/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductoRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
type ProductoRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	// FindByCodigo matches the stored 12-digit payload exactly.
	FindByCodigo(ctx context.Context, codigo string) (*model.Producto, error)
	ExisteCodigo(ctx context.Context, codigo string) (bool, error)
	List(ctx context.Context, filter dto.ProductoFilter) ([]model.Producto, int64, error)
	// Update persists Nombre and Precio only; the barcode is immutable.
	Update(ctx context.Context, p *model.Producto) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Create is phase 1 of product creation: it gives the row its durable
	// identity. A taken codigo_barras fails with gorm.ErrDuplicatedKey.
	Create(ctx context.Context, p *model.Producto) error
	// AsignarImagen is phase 2: it attaches the rendered image reference.
	AsignarImagen(ctx context.Context, id uuid.UUID, ref string) error
}

type productoRepo struct{ db *gorm.DB }

func NewProductoRepository(db *gorm.DB) ProductoRepository { return &productoRepo{db: db} }

func (r *productoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productoRepo) FindByCodigo(ctx context.Context, codigo string) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).Where("codigo_barras = ?", codigo).First(&p).Error
	return &p, err
}

func (r *productoRepo) ExisteCodigo(ctx context.Context, codigo string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Producto{}).Where("codigo_barras = ?", codigo).Count(&n).Error
	return n > 0, err
}

func (r *productoRepo) List(ctx context.Context, filter dto.ProductoFilter) ([]model.Producto, int64, error) {
	var productos []model.Producto
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Producto{})
	if filter.Nombre != "" {
		q = q.Where("nombre ILIKE ?", "%"+filter.Nombre+"%")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Order("nombre ASC").Limit(filter.Limit).Offset(offset).Find(&productos).Error
	return productos, total, err
}

func (r *productoRepo) Update(ctx context.Context, p *model.Producto) error {
	res := r.db.WithContext(ctx).Model(p).Select("nombre", "precio", "updated_at").Updates(p)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Producto{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productoRepo) Create(ctx context.Context, p *model.Producto) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productoRepo) AsignarImagen(ctx context.Context, id uuid.UUID, ref string) error {
	res := r.db.WithContext(ctx).Model(&model.Producto{}).Where("id = ?", id).Update("imagen_codigo", ref)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
