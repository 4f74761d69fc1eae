package config

import (
	"encoding/json"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/tauraamui/videobatch/pkg/log"
	"github.com/tauraamui/xerror"
	"gopkg.in/dealancer/validate.v2"
)

// StringList accepts either a single JSON string or an array of
// strings, so short configs can say "sources": "clip.mp4".
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = StringList{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return xerror.New("expected a path or a list of paths")
	}
	*l = StringList(many)
	return nil
}

type Values struct {
	Command   string     `json:"command" validate:"empty=false"`
	Sources   StringList `json:"sources"`
	SourceDir string     `json:"sourcedir"`
	Backend   string     `json:"backend"`
	RunLog    string     `json:"runlog"`

	// Options retains the whole document: commands read their own keys
	// from it and ignore the rest.
	Options json.RawMessage `json:"-"`
}

func (v Values) RunValidate() error {
	return validate.Validate(&v)
}

func Load(fs afero.Fs, path string) (Values, error) {
	var values Values

	file, err := afero.ReadFile(fs, path)
	if err != nil {
		return Values{}, xerror.Errorf("unable to read from path %s: %w", path, err)
	}

	if err := json.Unmarshal(file, &values); err != nil {
		return Values{}, errors.Errorf("parsing configuration error: %v", err)
	}

	if err := values.RunValidate(); err != nil {
		return Values{}, err
	}

	values.Options = json.RawMessage(file)
	return values, nil
}

// ExpandSources resolves the configured source entries into concrete
// file paths. Entries may contain glob patterns; entries relative to
// 'sourcedir' are joined onto it. A pattern matching nothing is kept
// as a literal path, letting the per-file error handling report it.
func (v Values) ExpandSources(fs afero.Fs) ([]string, error) {
	var sources []string
	for _, entry := range v.Sources {
		if len(v.SourceDir) > 0 && !filepath.IsAbs(entry) {
			entry = filepath.Join(v.SourceDir, entry)
		}

		matches, err := afero.Glob(fs, entry)
		if err != nil {
			return nil, xerror.Errorf("bad source pattern %q: %w", entry, err)
		}
		if len(matches) == 0 {
			log.Debug("source %s matched nothing, keeping it verbatim", entry)
			sources = append(sources, entry)
			continue
		}

		sort.Strings(matches)
		sources = append(sources, matches...)
	}
	return sources, nil
}
