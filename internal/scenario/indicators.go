package scenario

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// 已登录状态的文本与元素特征，任一命中即可
var (
	loginWords     = []string{"profile", "logout", "sign out", "log out", "dashboard", "lobby", "welcome"}
	loginSelectors = `[data-test="user-menu"], [data-testid="user-menu"], .user-menu, .user-profile, .avatar`

	sessionWords     = []string{"profile", "logout", "log out", "sign out"}
	sessionSelectors = `[data-test="user-menu"], [data-testid="user-menu"], .user-menu, .user-profile`
)

// loggedIn 返回已登录判定：body 文本（忽略大小写）包含用户名或任一特征词，或存在特征元素
func loggedIn(username string, words []string, selectors string) func(*goquery.Document) bool {
	return func(doc *goquery.Document) bool {
		text := strings.ToLower(doc.Text())
		if username != "" && strings.Contains(text, strings.ToLower(username)) {
			return true
		}
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return doc.Find(selectors).Length() > 0
	}
}
