package approval

import (
	"fmt"

	"github.com/fisker/salesflow/internal/model"
)

// Kind 描述一种可审批单据：展示名、绑定的表单名、请求体中的ID字段名及路由
type Kind struct {
	Code        model.DocumentKind
	DisplayName string // 用于提示信息，如 "Sales RFQ"
	FormName    string // 查询审批人/权限使用的表单名
	IDField     string // 请求/响应中的单据ID字段，如 "SalesRFQID"
	Route       string // 路由前缀，如 "sales-rfqs"
	Table       string // 单据所在表
}

// NewIDField 响应中的 new<DocumentID> 字段
func (k Kind) NewIDField() string {
	return "new" + k.IDField
}

var defaultKinds = []Kind{
	{
		Code:        model.DocumentKindSalesRFQ,
		DisplayName: "Sales RFQ",
		FormName:    "Sales RFQ",
		IDField:     "SalesRFQID",
		Route:       "sales-rfqs",
		Table:       model.SalesRFQ{}.TableName(),
	},
	{
		Code:        model.DocumentKindSalesOrder,
		DisplayName: "Sales Order",
		FormName:    "Sales Order",
		IDField:     "SalesOrderID",
		Route:       "sales-orders",
		Table:       model.SalesOrder{}.TableName(),
	},
	{
		Code:        model.DocumentKindSalesQuotation,
		DisplayName: "Sales Quotation",
		FormName:    "Sales Quotation",
		IDField:     "SalesQuotationID",
		Route:       "sales-quotations",
		Table:       model.SalesQuotation{}.TableName(),
	},
	{
		Code:        model.DocumentKindSalesInvoice,
		DisplayName: "Sales Invoice",
		FormName:    "Sales Invoice",
		IDField:     "SalesInvoiceID",
		Route:       "sales-invoices",
		Table:       model.SalesInvoice{}.TableName(),
	},
	{
		Code:        model.DocumentKindPurchaseInvoice,
		DisplayName: "Purchase Invoice",
		FormName:    "Purchase Invoice",
		IDField:     "PurchaseInvoiceID",
		Route:       "purchase-invoices",
		Table:       model.PurchaseInvoice{}.TableName(),
	},
}

// Registry 单据类型注册表
type Registry struct {
	kinds  []Kind
	byCode map[model.DocumentKind]Kind
}

// NewRegistry 创建注册表，formNames 可按单据类型覆盖默认表单名
func NewRegistry(formNames map[string]string) *Registry {
	r := &Registry{byCode: make(map[model.DocumentKind]Kind, len(defaultKinds))}
	for _, k := range defaultKinds {
		if name, ok := formNames[string(k.Code)]; ok && name != "" {
			k.FormName = name
		}
		r.kinds = append(r.kinds, k)
		r.byCode[k.Code] = k
	}
	return r
}

// Kinds 返回全部单据类型（顺序固定）
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, len(r.kinds))
	copy(out, r.kinds)
	return out
}

// Lookup 按单据类型查找
func (r *Registry) Lookup(code model.DocumentKind) (Kind, error) {
	k, ok := r.byCode[code]
	if !ok {
		return Kind{}, fmt.Errorf("unknown document kind: %s", code)
	}
	return k, nil
}

// TableFor 返回单据类型对应的表名
func (r *Registry) TableFor(code model.DocumentKind) (string, error) {
	k, err := r.Lookup(code)
	if err != nil {
		return "", err
	}
	return k.Table, nil
}
