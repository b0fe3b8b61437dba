package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hull/internal/board"
	"github.com/roach88/hull/internal/store"
	"github.com/roach88/hull/internal/testutil"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := testutil.NewDeterministicClock()
	gw := board.New(st, board.WithClock(clock.Now), board.WithIDGenerator(testutil.NewSequentialIDs("").Next))
	ctx := context.Background()

	g, err := gw.CreateGroup(ctx, board.NewGroup{Name: "Backlog"})
	require.NoError(t, err)
	_, err = gw.CreateItem(ctx, board.NewItem{Title: "Write docs", GroupID: g.ID})
	require.NoError(t, err)
	ship, err := gw.CreateItem(ctx, board.NewItem{Title: "Ship <it> & tell", GroupID: g.ID})
	require.NoError(t, err)
	_, err = gw.ReorderItem(ctx, ship.ID, 0)
	require.NoError(t, err)
	_, err = gw.CreateWorker(ctx, board.NewWorker{Sigil: "bot"})
	require.NoError(t, err)
	return st
}

func TestExport_Golden(t *testing.T) {
	st := seededStore(t)

	var buf bytes.Buffer
	n, err := Export(context.Background(), st.DB(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "export", buf.Bytes())
}

func TestSnapshot_DirSink(t *testing.T) {
	st := seededStore(t)
	root := t.TempDir()
	sink, err := NewDirSink(root)
	require.NoError(t, err)

	key, n, err := Snapshot(context.Background(), st.DB(), sink, testutil.Epoch)
	require.NoError(t, err)
	assert.Equal(t, "ledger/20250102T030405.000000000Z.jsonl", key)
	assert.Equal(t, 5, n)

	data, err := os.ReadFile(filepath.Join(root, "ledger", "20250102T030405.000000000Z.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, 5, bytes.Count(data, []byte("\n")))

	_, _, err = Snapshot(context.Background(), st.DB(), sink, testutil.Epoch)
	assert.Error(t, err, "existing archive must not be overwritten")
}

func TestDirSink_RejectsEscapingKeys(t *testing.T) {
	sink, err := NewDirSink(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "  ", "/etc/passwd", "../up", "a/../../b"} {
		assert.Error(t, sink.Put(context.Background(), key, bytes.NewReader(nil)), key)
	}
}

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Sink_Put(t *testing.T) {
	st := seededStore(t)
	fake := &fakeS3{}
	sink := &S3Sink{client: fake, bucket: "hull-archive", prefix: "prod/"}

	key, _, err := Snapshot(context.Background(), st.DB(), sink, testutil.Epoch)
	require.NoError(t, err)

	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	assert.Equal(t, "hull-archive", aws.ToString(in.Bucket))
	assert.Equal(t, "prod/"+key, aws.ToString(in.Key))
	assert.Equal(t, "application/x-ndjson", aws.ToString(in.ContentType))

	var want bytes.Buffer
	_, err = Export(context.Background(), st.DB(), &want)
	require.NoError(t, err)
	assert.Equal(t, want.Bytes(), fake.bodies[0])
}

func TestS3Sink_PutError(t *testing.T) {
	sink := &S3Sink{client: &fakeS3{err: errors.New("access denied")}, bucket: "b"}

	err := sink.Put(context.Background(), "k", bytes.NewReader(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://b/k")
}

func TestNewS3Sink(t *testing.T) {
	_, err := NewS3Sink(context.Background(), S3Config{})
	assert.Error(t, err)

	sink, err := NewS3Sink(context.Background(), S3Config{
		Bucket:          "hull",
		Endpoint:        "http://127.0.0.1:9000",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, "hull", sink.bucket)
	assert.NotNil(t, sink.client)
}
