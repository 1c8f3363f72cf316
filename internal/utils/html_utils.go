package utils

import (
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// EnhanceHTMLContent 为评论 HTML 中的图片和外链增加安全及优化属性
func EnhanceHTMLContent(htmlStr string) template.HTML {
	if htmlStr == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return template.HTML(htmlStr)
	}

	// 增强图片属性
	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("referrerpolicy", "no-referrer")
		s.SetAttr("loading", "lazy")
	})

	// 评论里的链接一律 nofollow，防止刷外链
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		rel := s.AttrOr("rel", "")
		if !strings.Contains(rel, "nofollow") {
			s.SetAttr("rel", strings.TrimSpace(rel+" nofollow"))
		}
	})

	// goquery renders full document tags if missing, we just want the body content
	html, _ := doc.Find("body").Html()
	if html == "" {
		html, _ = doc.Html()
	}

	return template.HTML(html)
}
