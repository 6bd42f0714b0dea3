package storyscope

import "path"

// CurrentUnit returns the conventional name of the documented unit: the base
// name of the directory containing the documentation file. Both slash styles
// are accepted.
func CurrentUnit(documentationPath string) string {
	p := path.Clean(slashed(documentationPath))
	dir := path.Base(path.Dir(p))
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

func slashed(p string) string {
	b := []byte(p)
	for i, c := range b {
		if c == '\\' {
			b[i] = '/'
		}
	}
	return string(b)
}
