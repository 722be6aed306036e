// # csvbind: Typed CSV Records for Go
//
// csvbind converts CSV streams into typed records and back. A record type is described by an ordered list of slots built with typed constructors, so no reflection is involved; the library handles quoting, multi-line fields, headers, fixed-width layouts and culture-aware numbers and dates.
//
// # Features
//
// - Tokenizer (`Reader`, `Writer`) that never rejects input, keeps absent and empty fields apart and tracks source lines across quoted line breaks.
// - Slots for strings, integers, floats, `apd.Decimal`, booleans, times, durations and any `encoding.TextMarshaler`, with optional `Column` annotations (name, ordinal, required, number and date style, output format, width).
// - Header driven column order, ordinal addressed reading and an unknown-column tolerant mode.
// - Recoverable errors (missing required values, bad formats) batched into one `AggregateError` with a configurable cap; fatal errors returned immediately.
// - `Config` loadable from the environment, and column annotations loadable from YAML.
//
// # Getting Started
//
//	type Item struct {
//		Name  string
//		Count int
//	}
//
//	slots := []csvbind.Slot[Item]{
//		csvbind.String("name", func(i *Item) *string { return &i.Name }),
//		csvbind.Int("count", func(i *Item) *int { return &i.Count }),
//	}
//	items, err := csvbind.Read(strings.NewReader("name,count\nA,1\n"), slots, csvbind.DefaultConfig())
//
// Reading needs an io.ReadSeeker: every new session (Decoder.Cursor, a range over Decoder.All) starts again from the beginning of the source.
package csvbind
