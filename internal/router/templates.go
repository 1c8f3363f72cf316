package router

import (
	"fmt"
	"html/template"
	"path/filepath"
	"time"

	"github.com/gin-contrib/multitemplate"
)

var funcMap = template.FuncMap{
	"dict": func(values ...interface{}) (map[string]interface{}, error) {
		if len(values)%2 != 0 {
			return nil, fmt.Errorf("invalid dict call")
		}
		dict := make(map[string]interface{}, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict keys must be strings")
			}
			dict[key] = values[i+1]
		}
		return dict, nil
	},
	"add": func(a, b int) int {
		return a + b
	},
	"gt": func(a, b int) bool {
		return a > b
	},
	"timeAgo": func(t time.Time) string {
		seconds := int(time.Since(t).Seconds())
		switch {
		case seconds < 60:
			return fmt.Sprintf("%d秒前", seconds)
		case seconds < 3600:
			return fmt.Sprintf("%d分钟前", seconds/60)
		case seconds < 86400:
			return fmt.Sprintf("%d小时前", seconds/3600)
		case seconds < 2592000:
			return fmt.Sprintf("%d天前", seconds/86400)
		case seconds < 31536000:
			return fmt.Sprintf("%d个月前", seconds/2592000)
		}
		return fmt.Sprintf("%d年前", seconds/31536000)
	},
}

// LoadTemplates 评论区只有 HTMX 片段，每个片段都带上 components 里的公共模板
func LoadTemplates(templatesDir string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	components, err := filepath.Glob(templatesDir + "/components/*.html")
	if err != nil {
		panic(err)
	}

	assemble := func(view string) []string {
		files := make([]string, 0, len(components)+1)
		files = append(files, view)
		files = append(files, components...)
		return files
	}

	r.AddFromFilesFuncs("comments/thread.html", funcMap, assemble(templatesDir+"/views/comments/thread.html")...)
	r.AddFromFilesFuncs("comments/replies.html", funcMap, assemble(templatesDir+"/views/comments/replies.html")...)
	r.AddFromFilesFuncs("comments/comment.html", funcMap, assemble(templatesDir+"/views/comments/comment.html")...)

	return r
}
