package corpus

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"

	apperrors "github.com/mkurosawa/addrsearch/pkg/errors"
)

// Japanese address CSVs ship in several legacy encodings. Candidates are
// tried in order; the first decode that produces no replacement characters
// wins. x/text's ShiftJIS decoder follows the WHATWG table and therefore
// also covers Windows code page 932. ISO-2022-JP is not in this table: its
// output is pure 7-bit bytes that every candidate here accepts verbatim, so
// it is recognised by its escape sequences instead (see decodeJapanese).
var csvEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"shift_jis", japanese.ShiftJIS},
	{"euc_jp", japanese.EUCJP},
}

// LoadCSV reads a headered CSV file, resolving its character encoding, and
// returns the corpus together with the header columns. Record IDs are row
// positions, header excluded. Rows shorter than the header contribute empty
// values for the trailing columns.
func LoadCSV(path string) (Corpus, []string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading corpus file %s: %w", path, err)
	}
	text, encName, err := decodeJapanese(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding corpus file %s: %w", path, err)
	}
	slog.Default().With("component", "corpus-loader").Info("corpus file decoded",
		"path", path,
		"encoding", encName,
		"bytes", len(raw),
	)

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("corpus file %s is empty: %w", path, apperrors.ErrCorpusLoad)
		}
		return nil, nil, fmt.Errorf("reading csv header: %w", err)
	}

	var records Corpus
	for id := 0; ; id++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading csv row %d: %w", id, err)
		}
		fields := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row) {
				fields[name] = row[i]
			}
		}
		records = append(records, Record{ID: id, Fields: fields})
	}
	return records, header, nil
}

// decodeJapanese converts raw bytes to UTF-8, returning the name of the
// encoding that succeeded. ISO-2022-JP must be checked before anything else:
// being 7-bit, its bytes are valid UTF-8 and decode without error under
// Shift_JIS as well, and only the escape sequences give it away. After that,
// input that is valid UTF-8 is taken as-is, since genuine Shift_JIS or
// EUC-JP text is almost never valid UTF-8.
func decodeJapanese(raw []byte) (string, string, error) {
	if hasISO2022Escape(raw) {
		decoded, err := japanese.ISO2022JP.NewDecoder().Bytes(raw)
		if err == nil && cleanUTF8(decoded) {
			return string(decoded), "iso2022_jp", nil
		}
		return "", "", apperrors.ErrEncodingDetect
	}
	if utf8.Valid(raw) {
		return string(raw), "utf_8", nil
	}
	for _, cand := range csvEncodings {
		decoded, err := cand.enc.NewDecoder().Bytes(raw)
		if err != nil {
			continue
		}
		if !cleanUTF8(decoded) {
			continue
		}
		return string(decoded), cand.name, nil
	}
	return "", "", apperrors.ErrEncodingDetect
}

// hasISO2022Escape reports whether raw contains an ISO-2022-JP charset
// designation (ESC $ or ESC followed by '(').
func hasISO2022Escape(raw []byte) bool {
	for i := 0; i+1 < len(raw); i++ {
		if raw[i] == 0x1b && (raw[i+1] == '$' || raw[i+1] == '(') {
			return true
		}
	}
	return false
}

// cleanUTF8 reports whether decoded is valid UTF-8 free of replacement
// characters, i.e. a decode that lost nothing.
func cleanUTF8(decoded []byte) bool {
	return utf8.Valid(decoded) && !bytes.ContainsRune(decoded, utf8.RuneError)
}
