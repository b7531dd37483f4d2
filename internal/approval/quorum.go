package approval

// Quorum 法定人数计算结果
type Quorum struct {
	ApprovedCount int  `json:"approvedCount"`
	RequiredCount int  `json:"requiredCount"`
	IsQuorumMet   bool `json:"isQuorumMet"`
	Remaining     int  `json:"remaining"`
}

// Evaluate 计算是否所有必需审批人都已审批
// 只统计属于必需集合的审批人，重复出现的ID只算一次。
// 必需集合为空时永远不满足，由调用方按配置错误处理。
func Evaluate(required, completed []int64) Quorum {
	requiredSet := make(map[int64]struct{}, len(required))
	for _, id := range required {
		requiredSet[id] = struct{}{}
	}

	approved := make(map[int64]struct{}, len(completed))
	for _, id := range completed {
		if _, ok := requiredSet[id]; ok {
			approved[id] = struct{}{}
		}
	}

	q := Quorum{
		ApprovedCount: len(approved),
		RequiredCount: len(requiredSet),
	}
	q.IsQuorumMet = q.RequiredCount > 0 && q.ApprovedCount >= q.RequiredCount
	if q.Remaining = q.RequiredCount - q.ApprovedCount; q.Remaining < 0 {
		q.Remaining = 0
	}
	return q
}

// Mismatched 返回不在必需集合中的审批人（角色调整后遗留的审批），仅用于诊断
func Mismatched(required, all []int64) []int64 {
	requiredSet := make(map[int64]struct{}, len(required))
	for _, id := range required {
		requiredSet[id] = struct{}{}
	}
	var out []int64
	seen := make(map[int64]struct{})
	for _, id := range all {
		if _, ok := requiredSet[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
