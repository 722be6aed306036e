package csvbind

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name  string
	Count int
}

func itemSlots(cols ...Column) []Slot[item] {
	slots := []Slot[item]{
		String("name", func(i *item) *string { return &i.Name }),
		Int("count", func(i *item) *int { return &i.Count }),
	}
	for i, col := range cols {
		if col != (Column{}) {
			slots[i] = slots[i].With(col)
		}
	}
	return slots
}

func readItems(t *testing.T, input string, cfg Config, cols ...Column) ([]item, error) {
	t.Helper()
	dec, err := NewDecoder(strings.NewReader(input), itemSlots(cols...), cfg, WithTypeName("item"))
	require.NoError(t, err)
	return dec.ReadAll()
}

func TestDecoderHeaderRows(t *testing.T) {
	t.Parallel()

	got, err := readItems(t, "A,1\nB,2\n", noHeaderConfig())
	require.NoError(t, err)
	assert.Equal(t, []item{{"A", 1}, {"B", 2}}, got)

	got, err = readItems(t, "name,count\nA,1\nB,2\n", DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []item{{"A", 1}, {"B", 2}}, got)

	got, err = readItems(t, "count,name\r\n1,A\r\n2,B", DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []item{{"A", 1}, {"B", 2}}, got)
}

func TestDecoderFixedWidth(t *testing.T) {
	t.Parallel()

	type triple struct {
		Code string
		A, B int
	}
	slots := []Slot[triple]{
		String("code", func(r *triple) *string { return &r.Code }).With(Column{Width: 2}),
		Int("a", func(r *triple) *int { return &r.A }).With(Column{Width: 2}),
		Int("b", func(r *triple) *int { return &r.B }).With(Column{Width: 2}),
	}
	cfg := noHeaderConfig()
	cfg.FixedWidth = true

	got, err := Read(strings.NewReader("AB0102"), slots, cfg)
	require.NoError(t, err)
	assert.Equal(t, []triple{{"AB", 1, 2}}, got)

	// The header is cut with the declared widths, then the data follows
	// the header order.
	slots[0] = slots[0].With(Column{Name: "cd", Width: 2})
	cfg.HeaderPresent = true
	got, err = Read(strings.NewReader("b a cd\n7 8 AB\n\n9   C \n"), slots, cfg)
	require.NoError(t, err)
	assert.Equal(t, []triple{{"AB", 8, 7}, {"C", 0, 9}}, got)
}

func TestDecoderQuotedValues(t *testing.T) {
	t.Parallel()

	input := "name,count\n\"This has, a comma\",1\n\"say \"\"hi\"\"\",2\n\"multi\nline\",3\n"
	got, err := readItems(t, input, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []item{
		{"This has, a comma", 1},
		{"say \"hi\"", 2},
		{"multi\nline", 3},
	}, got)
}

func TestDecoderLineNumbers(t *testing.T) {
	t.Parallel()

	input := "name,count\n\"two\nline\",1\n\n\"three\n\nlines\",x\nlast,3\n"
	dec, err := NewDecoder(strings.NewReader(input), itemSlots(), DefaultConfig())
	require.NoError(t, err)
	cur, err := dec.Cursor()
	require.NoError(t, err)

	var lines []int
	for cur.Next() {
		lines = append(lines, cur.Line())
	}
	assert.Equal(t, []int{2, 5, 8}, lines)

	errs := cur.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, 7, errs[0].Line, "the bad value sits on the last line of its record")
	assert.Equal(t, 2, errs[0].Record)
}

func TestDecoderRecoverableErrors(t *testing.T) {
	t.Parallel()

	input := "name,count\nA,1\nC\nD,x\nE,5\n"
	dec, err := NewDecoder(strings.NewReader(input), itemSlots(Column{}, Column{Required: true}), DefaultConfig(),
		WithTypeName("Item"), WithSourceName("items.csv"))
	require.NoError(t, err)

	cur, err := dec.Cursor()
	require.NoError(t, err)

	var got []item
	var perRecord []int
	for cur.Next() {
		got = append(got, cur.Record())
		perRecord = append(perRecord, len(cur.RecordErrors()))
	}
	assert.Equal(t, []item{{"A", 1}, {"C", 0}, {"D", 0}, {"E", 5}}, got, "records are delivered despite errors")
	assert.Equal(t, []int{0, 1, 1, 0}, perRecord)

	var agg *AggregateError
	require.ErrorAs(t, cur.Err(), &agg)
	require.Len(t, agg.Errors, 2)

	missing := agg.Errors[0]
	assert.ErrorIs(t, missing, ErrMissingRequired)
	assert.Equal(t, "count", missing.Field)
	assert.Equal(t, 3, missing.Line)
	assert.Equal(t, `csvbind: missing required value: in line 3, no value provided for required field "count" in type "Item" (source "items.csv")`, missing.Error())

	wrong := agg.Errors[1]
	assert.ErrorIs(t, wrong, ErrWrongFormat)
	assert.Equal(t, "x", wrong.Value)
	assert.Equal(t, 4, wrong.Line)
	assert.Contains(t, wrong.Error(), `value "x" in line 4 has the wrong format for field "count" in type "Item"`)

	assert.ErrorIs(t, cur.Err(), ErrWrongFormat, "the aggregate unwraps to its members")
	assert.Contains(t, agg.Error(), "2 error(s)")
	assert.Contains(t, agg.Error(), "(and 1 more)")
}

func TestDecoderEmptyValues(t *testing.T) {
	t.Parallel()

	type maybe struct {
		Name  string
		Note  *string
		Count *int
		Size  int
	}
	slots := []Slot[maybe]{
		String("name", func(m *maybe) *string { return &m.Name }),
		StringPtr("note", func(m *maybe) **string { return &m.Note }),
		IntPtr("count", func(m *maybe) **int { return &m.Count }),
		Int("size", func(m *maybe) *int { return &m.Size }).With(Column{Required: true}),
	}

	dec, err := NewDecoder(strings.NewReader("name,note,count,size\n,,,4\n\"\",\"\",\"\",\"\"\nx,y,7,1\n"), slots, DefaultConfig())
	require.NoError(t, err)
	got, err := dec.ReadAll()

	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Errors, 1, "only the required size may not be empty")
	assert.ErrorIs(t, agg.Errors[0], ErrMissingRequired)
	assert.Equal(t, 3, agg.Errors[0].Line)

	require.Len(t, got, 3)
	assert.Nil(t, got[0].Note)
	assert.Nil(t, got[0].Count)
	assert.Equal(t, 4, got[0].Size)

	require.NotNil(t, got[1].Note, "a quoted empty string is a value")
	assert.Equal(t, "", *got[1].Note)
	assert.Nil(t, got[1].Count)

	require.NotNil(t, got[2].Count)
	assert.Equal(t, 7, *got[2].Count)
	assert.Equal(t, "y", *got[2].Note)
}

func TestDecoderUnknownColumns(t *testing.T) {
	t.Parallel()

	input := "id,name,extra,count\n9,A,zzz,1\n8,B,yyy,2,surplus\n"

	_, err := readItems(t, input, DefaultConfig())
	require.ErrorIs(t, err, ErrUnknownColumn)
	var serr *SchemaError
	assert.ErrorAs(t, err, &serr)

	cfg := DefaultConfig()
	cfg.UnknownColumnTolerant = true
	got, err := readItems(t, input, cfg)
	require.NoError(t, err)
	assert.Equal(t, []item{{"A", 1}, {"B", 2}}, got)
}

func TestDecoderTooManyFields(t *testing.T) {
	t.Parallel()

	got, err := readItems(t, "A,1\nB,2,extra\nC,3\n", noHeaderConfig())
	require.ErrorIs(t, err, ErrTooManyFields)
	var rerr *RecordError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 2, rerr.Line)
	assert.Equal(t, []item{{"A", 1}}, got, "the session stops at the oversized row")

	cfg := noHeaderConfig()
	cfg.TrailingSeparatorTolerant = true
	got, err = readItems(t, "A,1,\nB,2,\n", cfg)
	require.NoError(t, err)
	assert.Equal(t, []item{{"A", 1}, {"B", 2}}, got)
}

func TestDecoderOrdinalAddressed(t *testing.T) {
	t.Parallel()

	cfg := noHeaderConfig()
	cfg.OrdinalAddressedRead = true
	cfg.UnknownColumnTolerant = true

	got, err := readItems(t, "5,x,A\n6,y,B\n", cfg, Column{Ordinal: 3}, Column{Ordinal: 1})
	require.NoError(t, err)
	assert.Equal(t, []item{{"A", 5}, {"B", 6}}, got)

	_, err = readItems(t, "5,x\n", cfg, Column{Ordinal: 3}, Column{Ordinal: 1})
	require.ErrorIs(t, err, ErrOrdinalOutOfRange)

	_, err = readItems(t, "A,5\n", cfg, Column{}, Column{Ordinal: 2})
	require.ErrorIs(t, err, ErrMissingOrdinal)
}

func TestDecoderAnnotationRequired(t *testing.T) {
	t.Parallel()

	cfg := noHeaderConfig()
	cfg.AnnotationRequired = true

	got, err := readItems(t, "A\nB\n", cfg, Column{Ordinal: 1})
	require.NoError(t, err)
	assert.Equal(t, []item{{"A", 0}, {"B", 0}}, got)

	_, err = readItems(t, "A,1\n", cfg, Column{Ordinal: 1})
	require.ErrorIs(t, err, ErrTooManyFields, "data for an unannotated slot")

	cfg.HeaderPresent = true
	_, err = readItems(t, "name,count\nA,1\n", cfg, Column{Ordinal: 1})
	require.ErrorIs(t, err, ErrMissingAnnotation)
}

func TestDecoderErrorCap(t *testing.T) {
	t.Parallel()

	input := "name,count\nA,x\nB,1\nC,y\nD,z\n"

	cfg := DefaultConfig()
	cfg.MaxErrors = 2
	got, err := readItems(t, input, cfg)
	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	assert.Len(t, agg.Errors, 2)
	assert.Equal(t, []item{{"A", 0}, {"B", 1}}, got, "the record reaching the cap is not delivered")

	cfg.MaxErrors = -1
	got, err = readItems(t, input, cfg)
	require.ErrorAs(t, err, &agg)
	assert.Len(t, agg.Errors, 3)
	assert.Len(t, got, 4)
}

func TestDecoderBlankLines(t *testing.T) {
	t.Parallel()

	got, err := readItems(t, "\n  \nname,count\n\n\"\"\nA,1\n   \r\nB,2\n\n", DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []item{{"A", 1}, {"B", 2}}, got)
}

func TestDecoderReplay(t *testing.T) {
	t.Parallel()

	dec, err := NewDecoder(strings.NewReader("name,count\nA,1\nB,x\n"), itemSlots(), DefaultConfig())
	require.NoError(t, err)

	for pass := 0; pass < 2; pass++ {
		var got []item
		var errs []error
		for rec, err := range dec.All() {
			if err != nil {
				errs = append(errs, err)
				continue
			}
			got = append(got, rec)
		}
		assert.Equal(t, []item{{"A", 1}, {"B", 0}}, got, "pass %d", pass)
		require.Len(t, errs, 1, "pass %d", pass)
		var agg *AggregateError
		require.ErrorAs(t, errs[0], &agg)
		assert.Len(t, agg.Errors, 1, "each pass collects its own errors")
	}

	// Stopping early and starting over rewinds the source.
	for rec := range dec.All() {
		assert.Equal(t, item{"A", 1}, rec)
		break
	}
	cur, err := dec.Cursor()
	require.NoError(t, err)
	require.True(t, cur.Next())
	assert.Equal(t, item{"A", 1}, cur.Record())
}

func TestDecoderSourceErrors(t *testing.T) {
	t.Parallel()

	_, err := NewDecoder[item](nil, itemSlots(), DefaultConfig())
	require.ErrorIs(t, err, ErrBadSource)

	dec, err := NewDecoder(noSeek{strings.NewReader("a,1\n")}, itemSlots(), DefaultConfig())
	require.NoError(t, err)
	_, err = dec.Cursor()
	require.ErrorIs(t, err, ErrBadSource)

	var got []error
	for _, err := range dec.All() {
		got = append(got, err)
	}
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0], ErrBadSource)
}

func TestDecoderConfigErrorBeforeRead(t *testing.T) {
	t.Parallel()

	src := &countingSource{ReadSeeker: strings.NewReader("name,count\nA,1\n")}
	_, err := NewDecoder(src, itemSlots(Column{Ordinal: 1}, Column{Ordinal: 1}), DefaultConfig())
	require.ErrorIs(t, err, ErrDuplicateOrdinal)
	assert.Zero(t, src.calls, "no I/O happens before the schema is valid")
}

func TestDecoderLogging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg := DefaultConfig()
	cfg.MaxErrors = 1

	dec, err := NewDecoder(strings.NewReader("name,count\nA,x\n"), itemSlots(), cfg, WithLogger(logger))
	require.NoError(t, err)
	_, err = dec.ReadAll()
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "read session started")
	assert.Contains(t, out, "header resolved")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "error limit reached")
	assert.Contains(t, out, "read session finished")
}

func TestDecoderTextSlots(t *testing.T) {
	t.Parallel()

	type host struct {
		Name string
		Addr ipText
	}
	slots := []Slot[host]{
		String("name", func(h *host) *string { return &h.Name }),
		Text("addr", func(h *host) *ipText { return &h.Addr }),
	}
	got, err := Read(strings.NewReader("name,addr\nweb,10.0.0.1\nbad,nope\n"), slots, DefaultConfig())
	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Errors, 1)
	assert.ErrorIs(t, agg.Errors[0], ErrWrongFormat)
	assert.ErrorIs(t, agg.Errors[0], errBadIP)
	assert.Equal(t, "10.0.0.1", string(got[0].Addr))
}

var errBadIP = errors.New("not an address")

// ipText is a minimal TextMarshaler accepting dotted quads.
type ipText string

func (ip ipText) MarshalText() ([]byte, error) { return []byte(ip), nil }

func (ip *ipText) UnmarshalText(b []byte) error {
	if strings.Count(string(b), ".") != 3 {
		return errBadIP
	}
	*ip = ipText(b)
	return nil
}

func TestRows(t *testing.T) {
	t.Parallel()

	src := strings.NewReader("h1,h2\n\na,\"b\nc\"\n  \nd,e\n")
	for pass := 0; pass < 2; pass++ {
		var values [][]string
		var lines []int
		for row, err := range Rows(src, DefaultConfig()) {
			require.NoError(t, err)
			values = append(values, row.Values())
			lines = append(lines, row.Line())
		}
		assert.Equal(t, [][]string{{"a", "b\nc"}, {"d", "e"}}, values, "pass %d", pass)
		assert.Equal(t, []int{3, 6}, lines, "pass %d", pass)
	}

	cfg := noHeaderConfig()
	cfg.FixedWidth = true
	var rows []Row
	for row, err := range Rows(strings.NewReader("AB0102\n\nCD"), cfg, 2, 2, 2) {
		require.NoError(t, err)
		rows = append(rows, row)
	}
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"AB", "01", "02"}, rows[0].Values())
	assert.Equal(t, []string{"CD"}, rows[1].Values())
}

func TestRowsErrors(t *testing.T) {
	t.Parallel()

	fixed := DefaultConfig()
	fixed.FixedWidth = true

	tests := []struct {
		name string
		src  io.ReadSeeker
		cfg  Config
		err  error
	}{
		{name: "nilSource", src: nil, cfg: DefaultConfig(), err: ErrBadSource},
		{name: "noSeek", src: noSeek{strings.NewReader("a\n")}, cfg: DefaultConfig(), err: ErrBadSource},
		{name: "noWidths", src: strings.NewReader("a\n"), cfg: fixed, err: ErrMissingWidth},
		{name: "badConfig", src: strings.NewReader("a\n"), cfg: Config{}, err: ErrInvalidConfig},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var errs []error
			for row, err := range Rows(tc.src, tc.cfg) {
				assert.Nil(t, row)
				errs = append(errs, err)
			}
			require.Len(t, errs, 1)
			assert.ErrorIs(t, errs[0], tc.err)
		})
	}
}

func noHeaderConfig() Config {
	cfg := DefaultConfig()
	cfg.HeaderPresent = false
	return cfg
}

type noSeek struct {
	io.Reader
}

func (noSeek) Seek(int64, int) (int64, error) {
	return 0, errors.New("seek not supported")
}

type countingSource struct {
	io.ReadSeeker
	calls int
}

func (c *countingSource) Read(p []byte) (int, error) {
	c.calls++
	return c.ReadSeeker.Read(p)
}

func (c *countingSource) Seek(off int64, whence int) (int64, error) {
	c.calls++
	return c.ReadSeeker.Seek(off, whence)
}
