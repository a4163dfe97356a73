package dto

import "time"

// OrderResponse represents a pedido as exposed via transport layers.
type OrderResponse struct {
	ID          int64     `json:"id"`
	Table       int       `json:"table"`
	Customer    string    `json:"customer"`
	Description string    `json:"description"`
	State       string    `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StatusListing is the filtered-by-state response body. Field names keep
// the Spanish wire contract shared with the other modules.
type StatusListing struct {
	Estado     string          `json:"estado"`
	Cantidad   int             `json:"cantidad"`
	Resultados []OrderResponse `json:"resultados"`
}

// HistoryEntry is one row of the day-history listing.
type HistoryEntry struct {
	Pedido                 OrderResponse `json:"pedido"`
	HoraIngreso            time.Time     `json:"hora_ingreso"`
	HoraSalida             *time.Time    `json:"hora_salida"`
	TiempoEnCocinaSegundos int64         `json:"tiempo_en_cocina_segundos"`
}
