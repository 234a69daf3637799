package mapper

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/exascience/elmap/executor"
	"github.com/exascience/elmap/fastq"
	"github.com/exascience/elmap/sam"
)

// toyProvider maps reads with awk, reporting every read as unmapped.
type toyProvider struct {
	exe       string
	stage     bool
	noMulti   bool
	commands  func(l *Layout) ([]Command, error)
	transform func(io.Reader) io.Reader
}

const (
	toySE = `NR % 4 == 1 { printf "%s\t4\t*\t0\t0\t*\t*\t0\t0\t*\t*\n", substr($0, 2) }`
	toyPE = `BEGIN {
	while ((getline a < ARGV[1]) > 0) {
		if ((getline b < ARGV[2]) <= 0) exit 1
		if (n++ % 4 == 0) {
			printf "%s\t77\t*\t0\t0\t*\t*\t0\t0\t*\t*\n", substr(a, 2)
			printf "%s\t141\t*\t0\t0\t*\t*\t0\t0\t*\t*\n", substr(b, 2)
		}
	}
}`
)

func (p *toyProvider) executable() string {
	if p.exe == "" {
		return "awk"
	}
	return p.exe
}

func (*toyProvider) Name() string           { return "toy" }
func (*toyProvider) DefaultVersion() string { return "1.0" }
func (*toyProvider) DefaultFlavor() string  { return "standard" }

func (*toyProvider) IsFlavorSupported(flavor string) bool {
	return flavor == "standard"
}

func (*toyProvider) DefaultArguments(string) []string {
	return []string{"--toy"}
}

func (p *toyProvider) IndexerExecutables(string) []string {
	return []string{"sh"}
}

func (p *toyProvider) MapperExecutable(string) string {
	return p.executable()
}

func (*toyProvider) IndexFiles(string) []string {
	return []string{".toy"}
}

func (*toyProvider) IndexCommands(l *IndexLayout) ([]Command, error) {
	sh, err := l.Executable("sh")
	if err != nil {
		return nil, err
	}
	return []Command{{Args: []string{sh, "-c", `cp "$1" "$2.toy"`, "sh", l.Genome, l.Prefix}}}, nil
}

var toyQuality = QualityOptions{Unsupported: []fastq.Format{fastq.Solexa}}

func (p *toyProvider) QualityArguments(_ string, format fastq.Format) ([]string, error) {
	return toyQuality.Arguments(p.Name(), format)
}

func (p *toyProvider) MultipleInstancesArguments() []string {
	if p.noMulti {
		return nil
	}
	return []string{"--mm"}
}

func (*toyProvider) DockerImage(version string) string {
	return "elmap/toy:" + version
}

func (p *toyProvider) pipeline() Pipeline {
	commands := p.commands
	if commands == nil {
		commands = func(l *Layout) ([]Command, error) {
			awk, err := l.Executable(p.executable())
			if err != nil {
				return nil, err
			}
			if l.Paired {
				return []Command{{Args: []string{awk, toyPE, l.Input1, l.Input2}}}, nil
			}
			return []Command{{Args: []string{awk, toySE, l.Input1}}}, nil
		}
	}
	return Pipeline{StageInput: p.stage, Commands: commands, Transform: p.transform}
}

func (p *toyProvider) MapSE(em *EntryMapping, in Input) (*Process, error) {
	return NewProcess(em, in, p.pipeline())
}

func (p *toyProvider) MapPE(em *EntryMapping, in Input) (*Process, error) {
	return NewProcess(em, in, p.pipeline())
}

// exitExecutor replaces the last command of a pipeline by one that
// consumes its input and exits with code.
type exitExecutor struct {
	executor.Executor
	code int
}

func (e exitExecutor) Execute(ctx context.Context, cmd executor.Cmd) (executor.Process, error) {
	if cmd.Stdout {
		input := cmd.Args[len(cmd.Args)-1]
		cmd.Args = []string{"sh", "-c", fmt.Sprintf(`cat "$1" > /dev/null; exit %d`, e.code), "sh", input}
	}
	return e.Executor.Execute(ctx, cmd)
}

type testEnv struct {
	tempDir  string
	indexDir string
	mapper   *Mapper
}

func newTestEnv(t *testing.T, p Provider) *testEnv {
	t.Helper()
	tempDir := t.TempDir()
	indexDir := filepath.Join(tempDir, "index")
	require.NoError(t, os.Mkdir(indexDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(indexDir, "genome.toy"), []byte(">chr1\nACGT\n"), 0644))
	return &testEnv{
		tempDir:  tempDir,
		indexDir: indexDir,
		mapper:   New(p, Options{TempDir: tempDir, Logger: hclog.NewNullLogger()}),
	}
}

func (env *testEnv) mapping(t *testing.T, exec executor.Executor, options MappingOptions) *EntryMapping {
	t.Helper()
	inst, err := env.mapper.NewInstanceWith("", "", exec)
	require.NoError(t, err)
	em, err := inst.NewEntryMapping(env.indexDir, options)
	require.NoError(t, err)
	return em
}

// leftovers returns the temporary files of processes still on disk.
func (env *testEnv) leftovers(t *testing.T) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(env.tempDir, "elmap-*"))
	require.NoError(t, err)
	return files
}

var bases = []byte("ACGT")

func syntheticReads(seed int64, n int, suffix string) []*fastq.Read {
	rnd := rand.New(rand.NewSource(seed))
	reads := make([]*fastq.Read, n)
	for i := range reads {
		seq := make([]byte, 50)
		qual := make([]byte, 50)
		for j := range seq {
			seq[j] = bases[rnd.Intn(4)]
			qual[j] = byte('!' + rnd.Intn(41))
		}
		reads[i] = &fastq.Read{Name: fmt.Sprintf("read%d%v", i, suffix), Sequence: string(seq), Quality: string(qual)}
	}
	return reads
}

// feed writes the reads into p while counting the alignments of its
// output, and waits for p.
func feed(p *Process, mate1, mate2 []*fastq.Read) (alignments int64, err error) {
	var g errgroup.Group
	g.Go(func() error {
		out, err := p.Stdout()
		if err != nil {
			return err
		}
		alignments, err = sam.CountAlignments(out)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		return err
	})
	g.Go(func() error {
		for i, read := range mate1 {
			if err := p.Write1(read); err != nil {
				return err
			}
			if mate2 != nil {
				if err := p.Write2(mate2[i]); err != nil {
					return err
				}
			}
		}
		return p.CloseInput()
	})
	if err := g.Wait(); err != nil {
		return alignments, err
	}
	return alignments, p.Wait()
}
