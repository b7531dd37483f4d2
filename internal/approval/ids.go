package approval

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// CoerceID 将请求中的标识转换为正整数，无法转换时返回 0
// 支持 JSON 数字、数字字符串以及 Go 整数类型
func CoerceID(v interface{}) int64 {
	switch t := v.(type) {
	case nil:
		return 0
	case int:
		return positive(int64(t))
	case int32:
		return positive(int64(t))
	case int64:
		return positive(t)
	case uint:
		return positive(int64(t))
	case uint32:
		return positive(int64(t))
	case uint64:
		if t > math.MaxInt64 {
			return 0
		}
		return positive(int64(t))
	case float64:
		if t != math.Trunc(t) || t > math.MaxInt64 {
			return 0
		}
		return positive(int64(t))
	case json.Number:
		return CoerceID(string(t))
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0
		}
		return positive(id)
	default:
		return 0
	}
}

func positive(id int64) int64 {
	if id <= 0 {
		return 0
	}
	return id
}
