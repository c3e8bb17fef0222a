package bridge

import "sort"

type targetKind int

const (
	toTenant targetKind = iota
	toUser               // target user ID read from a payload field
	toRole               // role scoped to the event's tenant
	toWorkCenter         // work center ID read from a payload field
)

// dispatch is one fan-out leg of a rule. Dispatches are independent: if
// one resolves to zero connections the others still go out.
type dispatch struct {
	kind     targetKind
	role     string // role name for toRole
	field    string // payload field for toUser / toWorkCenter
	notify   bool   // wrap as a structured notification instead of the raw event
	severity string
}

// rule maps one domain event to its broadcast legs. New event types are
// new table entries, not new control flow.
type rule struct {
	required   []string // payload fields that must be present
	dispatches []dispatch
}

var catalogue = map[string]rule{
	"order.created": {
		required: []string{"orderId", "orderNumber"},
		dispatches: []dispatch{
			{kind: toTenant},
			{kind: toRole, role: "production_manager", notify: true, severity: "info"},
		},
	},
	"order.state_changed": {
		required:   []string{"orderId", "state"},
		dispatches: []dispatch{{kind: toTenant}},
	},
	"order.completed": {
		required: []string{"orderId"},
		dispatches: []dispatch{
			{kind: toTenant},
			{kind: toRole, role: "production_manager", notify: true, severity: "info"},
		},
	},
	"task.assigned": {
		required: []string{"taskId", "workerId"},
		dispatches: []dispatch{
			{kind: toUser, field: "workerId"},
			{kind: toUser, field: "workerId", notify: true, severity: "info"},
		},
	},
	"task.completed": {
		required:   []string{"taskId"},
		dispatches: []dispatch{{kind: toRole, role: "supervisor"}},
	},
	"task.overdue": {
		required: []string{"taskId", "workerId"},
		dispatches: []dispatch{
			{kind: toUser, field: "workerId"},
			{kind: toRole, role: "supervisor", notify: true, severity: "warning"},
		},
	},
	"inventory.low_stock": {
		required: []string{"productId"},
		dispatches: []dispatch{
			{kind: toRole, role: "inventory_manager"},
			{kind: toRole, role: "inventory_manager", notify: true, severity: "warning"},
		},
	},
	"inventory.reorder_required": {
		required:   []string{"productId"},
		dispatches: []dispatch{{kind: toRole, role: "inventory_manager"}},
	},
	"production.metrics_updated": {
		dispatches: []dispatch{{kind: toTenant}},
	},
	"production.target_missed": {
		required: []string{"orderId"},
		dispatches: []dispatch{
			{kind: toRole, role: "production_manager"},
			{kind: toRole, role: "production_manager", notify: true, severity: "warning"},
		},
	},
	"quality.inspection_failed": {
		required: []string{"inspectionId"},
		dispatches: []dispatch{
			{kind: toRole, role: "quality_manager"},
			{kind: toRole, role: "quality_manager", notify: true, severity: "critical"},
		},
	},
	"quality.hold_applied": {
		required:   []string{"orderId"},
		dispatches: []dispatch{{kind: toTenant}},
	},
	"equipment.breakdown": {
		required: []string{"equipmentId", "workCenterId"},
		dispatches: []dispatch{
			{kind: toWorkCenter, field: "workCenterId"},
			{kind: toRole, role: "maintenance_tech", notify: true, severity: "critical"},
		},
	},
	"equipment.maintenance_due": {
		required:   []string{"equipmentId"},
		dispatches: []dispatch{{kind: toRole, role: "maintenance_tech"}},
	},
	"worker.checked_in": {
		required:   []string{"workerId"},
		dispatches: []dispatch{{kind: toRole, role: "supervisor"}},
	},
	"worker.checked_out": {
		required:   []string{"workerId"},
		dispatches: []dispatch{{kind: toRole, role: "supervisor"}},
	},
	"metrics.kpi_updated": {
		dispatches: []dispatch{{kind: toTenant}},
	},
}

// EventNames lists the catalogued domain events; the consumer queue binds
// one routing key per name.
func EventNames() []string {
	names := make([]string, 0, len(catalogue))
	for name := range catalogue {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
