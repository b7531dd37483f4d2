package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Server Metrics

	// APIRequestsTotal API请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// APIRequestDuration API请求处理时长
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Approval Metrics

	// ApprovalAttemptsTotal 审批请求数，outcome 为最终状态或失败分类
	ApprovalAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_attempts_total",
			Help: "Total number of approval attempts by document kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// ApprovalDuration 单次审批事务耗时
	ApprovalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "approval_duration_seconds",
			Help:    "Approval transaction duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"kind"},
	)

	// MismatchedApprovalsTotal 发现不在必需审批人集合中的审批记录次数
	MismatchedApprovalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_mismatched_total",
			Help: "Approvals recorded by users outside the current required approver set",
		},
		[]string{"kind"},
	)
)
