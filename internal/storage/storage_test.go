package storage

import (
	"context"
	"errors"
	"testing"

	"partnerapp/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRowClient хранит листы в памяти и запоминает вызовы
type fakeRowClient struct {
	sheets  map[string][][]string
	deleted []int
	readErr error
}

func (f *fakeRowClient) ReadRows(_ context.Context, sheet string) ([][]string, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.sheets[sheet], nil
}

func (f *fakeRowClient) AppendRow(_ context.Context, sheet string, values []string) error {
	f.sheets[sheet] = append(f.sheets[sheet], values)
	return nil
}

func (f *fakeRowClient) UpdateRow(_ context.Context, sheet string, row int, values []string) error {
	f.sheets[sheet][row-1] = values
	return nil
}

func (f *fakeRowClient) DeleteRow(_ context.Context, sheet string, row int) error {
	f.deleted = append(f.deleted, row)
	rows := f.sheets[sheet]
	f.sheets[sheet] = append(rows[:row-1], rows[row:]...)
	return nil
}

func TestSheetTableReadUsesHeader(t *testing.T) {
	client := &fakeRowClient{sheets: map[string][][]string{
		"users": {
			{"telegram_id", " username ", "first_name"},
			{"1", "@ann"},
			{"2", "@bob", "Bob"},
		},
	}}
	table := NewSheetTable(client, "users")

	records, err := table.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 2, records[0].Index)
	assert.Equal(t, "@ann", records[0].Get("username"))
	assert.Equal(t, "", records[0].Get("first_name"))
	assert.Equal(t, 3, records[1].Index)
	assert.Equal(t, "Bob", records[1].Get("first_name"))
}

func TestSheetTableEmptySheet(t *testing.T) {
	table := NewSheetTable(&fakeRowClient{sheets: map[string][][]string{}}, "clicks")

	records, err := table.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSheetTableRejectsHeaderRow(t *testing.T) {
	table := NewSheetTable(&fakeRowClient{sheets: map[string][][]string{}}, "users")

	assert.ErrorIs(t, table.Update(context.Background(), 1, nil), ErrRowOutOfRange)
	assert.ErrorIs(t, table.Delete(context.Background(), 0), ErrRowOutOfRange)
}

func TestSheetTableReadError(t *testing.T) {
	boom := errors.New("503")
	table := NewSheetTable(&fakeRowClient{readErr: boom}, "users")

	_, err := table.Read(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestSheetTablesUseConfiguredNames(t *testing.T) {
	client := &fakeRowClient{sheets: map[string][][]string{
		"pidarasy": {{"username", "telegram_id"}, {"@gone", "9"}},
	}}
	tables := NewSheetTables(client, Names{model.KindArchive: "pidarasy"})

	records, err := tables.Archive.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "9", records[0].Get("telegram_id"))
}

func TestMemoryTableAddressing(t *testing.T) {
	ctx := context.Background()
	table := NewMemoryTable(model.AdminColumns)

	require.NoError(t, table.Append(ctx, []string{"@a", "1"}))
	require.NoError(t, table.Append(ctx, []string{"@b", "2"}))
	require.NoError(t, table.Append(ctx, []string{"@c", "3"}))

	require.NoError(t, table.Update(ctx, 3, []string{"@bb", "2"}))
	require.NoError(t, table.Delete(ctx, 2))

	records, err := table.Read(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "@bb", records[0].Get("username"))
	assert.Equal(t, 2, records[0].Index)
	assert.Equal(t, "@c", records[1].Get("username"))

	assert.ErrorIs(t, table.Delete(ctx, 4), ErrRowOutOfRange)
	assert.ErrorIs(t, table.Update(ctx, 1, nil), ErrRowOutOfRange)
}

func TestMemoryTablesSchema(t *testing.T) {
	tables := NewMemoryTables()
	ctx := context.Background()

	require.NoError(t, tables.Broadcasts.Append(ctx, model.Broadcast{ID: "BR_1", SentCount: 3}.Values()))
	records, err := tables.Broadcasts.Read(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "3", records[0].Get("sent_count"))
}
