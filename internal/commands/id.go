package commands

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateUniqueID 生成 <毫秒时间戳>-<6位随机串> 形式的标识
func GenerateUniqueID() string {
	r := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + r[:6]
}

// RunID 生成带前缀的场景运行标识
func RunID(prefix string) string {
	return prefix + "-" + GenerateUniqueID()
}
