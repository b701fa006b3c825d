package query

// ---------- Paginación / ordenamiento ----------

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Sort indica campo y dirección. Field es un nombre de columna ya
// resuelto contra la allow-list del dominio, nunca entrada del caller.
type Sort struct {
	Field string // ej. "created_at", "first_name"
	Desc  bool
}

// PageRequest describe la página solicitada en términos 1-based.
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize lleva página y tamaño a sus rangos válidos. Nunca falla:
// los valores fuera de rango se corrigen en silencio.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset devuelve cuántos elementos hay que saltar para esta página.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ---------- Resultado paginado ----------

// PagedResult empaqueta una página junto al total filtrado (sin
// paginar). Se construye una vez como salida terminal de un listado.
type PagedResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
}

func NewPagedResult[T any](items []T, total int64, p PageRequest) PagedResult[T] {
	if items == nil {
		items = []T{}
	}
	return PagedResult[T]{Items: items, TotalCount: total, Page: p.Page, PageSize: p.PageSize}
}

// TotalPages calcula ceil(totalCount / pageSize).
func (p PagedResult[T]) TotalPages() int64 {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.TotalCount + int64(p.PageSize) - 1) / int64(p.PageSize)
}

func (p PagedResult[T]) HasNext() bool {
	return int64(p.Page) < p.TotalPages()
}

func (p PagedResult[T]) HasPrevious() bool {
	return p.Page > 1
}

// Paginate aplica skip/take sobre una secuencia ya filtrada y ordenada.
// Una página más allá de los datos devuelve un slice vacío.
func Paginate[T any](items []T, p PageRequest) []T {
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
