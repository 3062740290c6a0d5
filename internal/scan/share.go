package scan

import (
	"fmt"
	"net/url"
	"strings"

	"soul-scanner/internal/wallet"
)

const (
	// ShareSiteURL 附在分享文案末尾。
	ShareSiteURL = "https://carvex-soul-scanner.vercel.app"
	// TweetIntentURL 是分享到 Twitter 的入口。
	TweetIntentURL = "https://twitter.com/intent/tweet"
)

// ShareText 生成分享文案：扫描行、截断地址、分数、洞察，顺序固定。
// 洞察缺失时使用空字符串，而不是展示用的兜底文案。
func ShareText(result Result) string {
	insight := ""
	if result.InsightSourced {
		insight = result.Insight
	}
	return fmt.Sprintf("I scanned my CARV soul 🔮\nWallet: %s\nSoul Points: %d\n%s \n%s",
		wallet.ShortAddress(result.Address),
		result.Score,
		insight,
		ShareSiteURL,
	)
}

// ShareURL 返回带有分享文案的 tweet intent 链接。
func ShareURL(result Result) string {
	return TweetIntentURL + "?text=" + encodeURIComponent(ShareText(result))
}

// componentUnescaper 还原 url.QueryEscape 与 encodeURIComponent 的差异：
// 空格写作 %20，!'()* 保持原样。
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func encodeURIComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
