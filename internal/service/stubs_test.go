package service_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/garcia-cyber/popcornRDC/internal/dto"
	"github.com/garcia-cyber/popcornRDC/internal/infra"
	"github.com/garcia-cyber/popcornRDC/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── In-memory ProductoRepository stub ────────────────────────────────────────

type stubProductoRepo struct {
	mu        sync.Mutex
	productos map[uuid.UUID]*model.Producto

	// antesDeExiste runs on every ExisteCodigo call, outside the lock.
	antesDeExiste func()
	// ocultarCodigos makes ExisteCodigo always answer false, so only the
	// unique check in Create protects the table.
	ocultarCodigos bool
	falloAsignar   error

	llamadas int
}

func newStubProductoRepo() *stubProductoRepo {
	return &stubProductoRepo{productos: make(map[uuid.UUID]*model.Producto)}
}

func (r *stubProductoRepo) contar() {
	r.mu.Lock()
	r.llamadas++
	r.mu.Unlock()
}

func (r *stubProductoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Producto, error) {
	r.contar()
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.productos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubProductoRepo) FindByCodigo(_ context.Context, codigo string) (*model.Producto, error) {
	r.contar()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.productos {
		if p.CodigoBarras != nil && *p.CodigoBarras == codigo {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubProductoRepo) ExisteCodigo(ctx context.Context, codigo string) (bool, error) {
	if r.antesDeExiste != nil {
		r.antesDeExiste()
	}
	if r.ocultarCodigos {
		return false, nil
	}
	_, err := r.FindByCodigo(ctx, codigo)
	return err == nil, nil
}

func (r *stubProductoRepo) List(_ context.Context, filter dto.ProductoFilter) ([]model.Producto, int64, error) {
	r.contar()
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Producto
	for _, p := range r.productos {
		if filter.Nombre == "" || strings.Contains(strings.ToLower(p.Nombre), strings.ToLower(filter.Nombre)) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out, int64(len(out)), nil
}

func (r *stubProductoRepo) Update(_ context.Context, p *model.Producto) error {
	r.contar()
	r.mu.Lock()
	defer r.mu.Unlock()
	actual, ok := r.productos[p.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	actual.Nombre, actual.Precio = p.Nombre, p.Precio
	return nil
}

func (r *stubProductoRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.contar()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.productos[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.productos, id)
	return nil
}

func (r *stubProductoRepo) Create(_ context.Context, p *model.Producto) error {
	r.contar()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, otro := range r.productos {
		if otro.CodigoBarras != nil && p.CodigoBarras != nil && *otro.CodigoBarras == *p.CodigoBarras {
			return gorm.ErrDuplicatedKey
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	cp := *p
	r.productos[p.ID] = &cp
	return nil
}

func (r *stubProductoRepo) AsignarImagen(_ context.Context, id uuid.UUID, ref string) error {
	r.contar()
	if r.falloAsignar != nil {
		return r.falloAsignar
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.productos[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.ImagenCodigo = &ref
	return nil
}

func (r *stubProductoRepo) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.productos)
}

func (r *stubProductoRepo) llamadasHechas() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.llamadas
}

// ── In-memory ImagenStore stub ───────────────────────────────────────────────

type stubStore struct {
	mu         sync.Mutex
	objetos    map[string][]byte
	falloGuard error
}

func newStubStore() *stubStore { return &stubStore{objetos: make(map[string][]byte)} }

func (s *stubStore) Guardar(_ context.Context, key string, data []byte) (string, error) {
	if s.falloGuard != nil {
		return "", s.falloGuard
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objetos[key] = append([]byte(nil), data...)
	return key, nil
}

func (s *stubStore) Abrir(_ context.Context, ref string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objetos[ref]
	if !ok {
		return nil, infra.ErrImagenNoEncontrada
	}
	return data, nil
}

func (s *stubStore) Eliminar(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objetos, ref)
	return nil
}

func (s *stubStore) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objetos)
}

// secuencia returns a generator that yields codes in order and then fails.
func secuencia(codigos ...string) func() (string, error) {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(codigos) {
			return "", errors.New("secuencia agotada")
		}
		c := codigos[i]
		i++
		return c, nil
	}
}
