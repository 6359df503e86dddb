// package language wraps x/text/language implementing driver/sql.Scanner and driver/sql.Valuer.
package language

import (
	"database/sql/driver"
	"fmt"

	"golang.org/x/text/language"
)

type Tag language.Tag

// Scan implements the sql.Scanner interface.
func (t *Tag) Scan(value any) error {
	if value == nil {
		*t = Tag(language.Und)
		return nil
	}

	tag, ok := value.(string)
	if !ok {
		return fmt.Errorf("language.Tag.Scan: expected string, got %T", value)
	}

	parsedTag, err := language.Parse(tag)
	if err != nil {
		return err
	}

	*t = Tag(parsedTag)
	return nil
}

// Value implements the driver.Valuer interface.
func (t Tag) Value() (driver.Value, error) {
	if t == Tag(language.Und) {
		return nil, nil
	}

	return language.Tag(t).String(), nil
}

func (t Tag) String() string {
	return language.Tag(t).String()
}

// Normalize canonicalizes a user-supplied language code for storage on
// caption rows. Unparseable codes fall back to English, matching the
// transcription default.
func Normalize(code string) string {
	tag, err := language.Parse(code)
	if err != nil || tag == language.Und {
		return "en"
	}
	return tag.String()
}
