package fontsrc

import (
	"fmt"
	"os"

	"github.com/flopp/go-findfont"
)

// Locate resolves a font reference to a file path. Existing files are
// returned as given; anything else is looked up by file name in the
// system font directories ("DejaVuSans.ttf", "NotoColorEmoji").
func Locate(name string) (string, error) {
	if st, err := os.Stat(name); err == nil && !st.IsDir() {
		return name, nil
	}
	path, err := findfont.Find(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFontNotFound, name, err)
	}
	return path, nil
}
