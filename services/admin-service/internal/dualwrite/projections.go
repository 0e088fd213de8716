package dualwrite

import (
	"time"

	"github.com/despasys/despasys/services/admin-service/internal/storage"
)

// Projection builders flatten storage rows into the JSON documents the
// dashboard reads from the realtime store. Field names follow the
// realtime-store convention (camelCase), not the SQL columns.

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func CustomerProjection(c storage.Customer) map[string]any {
	return map[string]any{
		"id":         c.ID,
		"name":       c.Name,
		"document":   c.Document,
		"personType": c.PersonType,
		"phone":      c.Phone,
		"email":      c.Email,
		"city":       c.City,
		"state":      c.State,
		"status":     c.Status,
		"createdAt":  timestamp(c.CreatedAt),
		"updatedAt":  timestamp(c.UpdatedAt),
	}
}

func VehicleProjection(v storage.Vehicle) map[string]any {
	return map[string]any{
		"id":         v.ID,
		"plate":      v.Plate,
		"renavam":    v.Renavam,
		"chassis":    v.Chassis,
		"brand":      v.Brand,
		"model":      v.Model,
		"modelYear":  v.ModelYear,
		"color":      v.Color,
		"customerId": v.CustomerID,
		"createdAt":  timestamp(v.CreatedAt),
	}
}

func ProcessProjection(p storage.Process) map[string]any {
	return map[string]any{
		"id":           p.ID,
		"number":       p.Number,
		"type":         p.Type,
		"status":       p.Status,
		"priority":     p.Priority,
		"customerId":   p.CustomerID,
		"customerName": p.CustomerName,
		"vehicleId":    p.VehicleID,
		"description":  p.Description,
		"createdBy":    p.CreatedBy,
		"createdAt":    timestamp(p.CreatedAt),
		"updatedAt":    timestamp(p.UpdatedAt),
	}
}

func LicensingProjection(l storage.Licensing) map[string]any {
	return map[string]any{
		"id":            l.ID,
		"customerId":    l.CustomerID,
		"vehiclePlate":  l.VehiclePlate,
		"referenceYear": l.ReferenceYear,
		"dueDate":       timestamp(l.DueDate),
		"amount":        l.Amount,
		"status":        l.Status,
		"createdAt":     timestamp(l.CreatedAt),
	}
}

func TransferProjection(t storage.Transfer) map[string]any {
	return map[string]any{
		"id":           t.ID,
		"vehiclePlate": t.VehiclePlate,
		"sellerId":     t.SellerID,
		"buyerId":      t.BuyerID,
		"amount":       t.Amount,
		"status":       t.Status,
		"createdAt":    timestamp(t.CreatedAt),
	}
}

func RegistrationProjection(reg storage.Registration) map[string]any {
	return map[string]any{
		"id":           reg.ID,
		"customerId":   reg.CustomerID,
		"vehiclePlate": reg.VehiclePlate,
		"kind":         reg.Kind,
		"status":       reg.Status,
		"createdAt":    timestamp(reg.CreatedAt),
	}
}

func UnlockProjection(u storage.Unlock) map[string]any {
	return map[string]any{
		"id":           u.ID,
		"customerId":   u.CustomerID,
		"vehiclePlate": u.VehiclePlate,
		"blockKind":    u.BlockKind,
		"authority":    u.Authority,
		"status":       u.Status,
		"createdAt":    timestamp(u.CreatedAt),
	}
}

func ReportProjection(rep storage.Report) map[string]any {
	return map[string]any{
		"id":           rep.ID,
		"vehiclePlate": rep.VehiclePlate,
		"kind":         rep.Kind,
		"result":       rep.Result,
		"status":       rep.Status,
		"inspectedAt":  timestamp(rep.InspectedAt),
		"createdAt":    timestamp(rep.CreatedAt),
	}
}

func EvaluationProjection(e storage.Evaluation) map[string]any {
	return map[string]any{
		"id":             e.ID,
		"vehiclePlate":   e.VehiclePlate,
		"fipeCode":       e.FipeCode,
		"marketValue":    e.MarketValue,
		"evaluatedValue": e.EvaluatedValue,
		"status":         e.Status,
		"createdAt":      timestamp(e.CreatedAt),
	}
}

func TransactionProjection(t storage.Transaction) map[string]any {
	return map[string]any{
		"id":          t.ID,
		"number":      t.Number,
		"processId":   t.ProcessID,
		"customerId":  t.CustomerID,
		"kind":        t.Kind,
		"category":    t.Category,
		"description": t.Description,
		"amount":      t.Amount,
		"dueDate":     timestamp(t.DueDate),
		"status":      t.Status,
		"createdAt":   timestamp(t.CreatedAt),
	}
}
