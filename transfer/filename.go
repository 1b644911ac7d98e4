package transfer

import (
	"path/filepath"
	"strings"

	"dva/errs"
)

const filenameParam = "filename="

// DownloadFilename extracts the filename parameter from a
// Content-Disposition style header such as
// `attachment; filename="file1.txt"; other="a"`.
func DownloadFilename(header string) (string, error) {
	for _, param := range strings.Split(header, ";") {
		param = strings.TrimSpace(param)
		if !strings.HasPrefix(param, filenameParam) {
			continue
		}

		value := strings.TrimPrefix(param, filenameParam)
		if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
			value = value[1 : len(value)-1]
		}

		// never let the server pick a path outside the destination
		name := filepath.Base(filepath.FromSlash(strings.ReplaceAll(value, `\`, "/")))
		if value == "" || name == "." || name == ".." || name == string(filepath.Separator) {
			return "", &errs.MalformedResponseError{What: "unusable filename in Content-Disposition", Value: header}
		}
		return name, nil
	}

	return "", &errs.MalformedResponseError{What: "no filename in Content-Disposition", Value: header}
}
