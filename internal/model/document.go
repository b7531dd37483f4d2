package model

import (
	"time"
)

// DocumentKind 需要审批的单据类型
type DocumentKind string

const (
	DocumentKindSalesRFQ        DocumentKind = "SalesRFQ"
	DocumentKindSalesOrder      DocumentKind = "SalesOrder"
	DocumentKindSalesQuotation  DocumentKind = "SalesQuotation"
	DocumentKindSalesInvoice    DocumentKind = "SalesInvoice"
	DocumentKindPurchaseInvoice DocumentKind = "PurchaseInvoice"
)

// DocumentStatus 单据审批状态（只有两种，不支持驳回/撤销）
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "Pending"
	DocumentStatusApproved DocumentStatus = "Approved"
)

// DocumentBase 所有可审批单据共用的字段
// 业务字段由各单据的 CRUD 流程维护，审批流程只读写 Status
type DocumentBase struct {
	ID        int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Status    DocumentStatus `json:"status" gorm:"type:varchar(20);not null;default:'Pending';index"`
	IsDeleted bool           `json:"isDeleted" gorm:"not null;default:false"`
	CreatedBy int64          `json:"createdBy"`
	CreatedAt time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
}

// SalesRFQ 销售询价单
type SalesRFQ struct {
	DocumentBase
	RFQNumber  string `json:"rfqNumber" gorm:"type:varchar(50);index"`
	CustomerID int64  `json:"customerId" gorm:"index"`
}

func (SalesRFQ) TableName() string {
	return "sales_rfqs"
}

// SalesOrder 销售订单
type SalesOrder struct {
	DocumentBase
	OrderNumber string `json:"orderNumber" gorm:"type:varchar(50);index"`
	CustomerID  int64  `json:"customerId" gorm:"index"`
}

func (SalesOrder) TableName() string {
	return "sales_orders"
}

// SalesQuotation 销售报价单
type SalesQuotation struct {
	DocumentBase
	QuotationNumber string `json:"quotationNumber" gorm:"type:varchar(50);index"`
	SalesRFQID      int64  `json:"salesRfqId" gorm:"index"`
}

func (SalesQuotation) TableName() string {
	return "sales_quotations"
}

// SalesInvoice 销售发票
type SalesInvoice struct {
	DocumentBase
	InvoiceNumber string `json:"invoiceNumber" gorm:"type:varchar(50);index"`
	SalesOrderID  int64  `json:"salesOrderId" gorm:"index"`
}

func (SalesInvoice) TableName() string {
	return "sales_invoices"
}

// PurchaseInvoice 采购发票
type PurchaseInvoice struct {
	DocumentBase
	InvoiceNumber string `json:"invoiceNumber" gorm:"type:varchar(50);index"`
	SupplierID    int64  `json:"supplierId" gorm:"index"`
}

func (PurchaseInvoice) TableName() string {
	return "purchase_invoices"
}

// DocumentState 审批流程关心的单据状态快照
type DocumentState struct {
	Kind      DocumentKind   `json:"kind" gorm:"-"`
	ID        int64          `json:"id"`
	Status    DocumentStatus `json:"status"`
	IsDeleted bool           `json:"isDeleted"`
}

// Live 单据存在且未被软删除
func (d *DocumentState) Live() bool {
	return d != nil && !d.IsDeleted
}
