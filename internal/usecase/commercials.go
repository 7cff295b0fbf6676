package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/forPelevin/subcut/internal/domain/edl"
	"github.com/forPelevin/subcut/internal/tempfiles"
	"github.com/forPelevin/subcut/internal/types"
)

var ErrTrimTooShort = errors.New("lead and end padding leave nothing to keep")

// fadeSeconds is the length of the fade-out closing every kept segment.
const fadeSeconds = 2

type cutPlan struct {
	ext      string
	bitrate  int
	entries  []types.EDLEntry
	ranges   []types.TimeRange
	segments []string
	faded    []string
	concat   string
	final    string
}

func (r *run) removeCommercials(ctx context.Context) (string, error) {
	p := &cutPlan{ext: filepath.Ext(r.in.Source)}
	if p.ext == "" {
		p.ext = ".mp4"
	}
	steps := []struct {
		name string
		fn   func(context.Context, *cutPlan) (string, error)
	}{
		{"setup", r.setup},
		{"split", r.split},
		{"fade", r.fade},
		{"concat", r.concat},
		{"trim", r.trim},
	}
	for _, s := range steps {
		if err := r.stage(s.name, func() (string, error) { return s.fn(ctx, p) }); err != nil {
			return "", err
		}
	}
	return p.final, nil
}

// setup pads and filters the EDL against the source duration.
func (r *run) setup(ctx context.Context, p *cutPlan) (string, error) {
	info, err := r.u.d.Video.Probe(ctx, r.in.Source)
	if err != nil {
		return "", err
	}
	p.bitrate = int(math.Round(info.BitrateKbps))
	p.entries = edl.Adjust(r.in.EDL, info.Duration, r.in.LeadSeconds, r.in.EndSeconds)
	r.log.Info().
		Float64("duration", info.Duration).
		Int("bitrate_kbps", p.bitrate).
		Int("entries", len(r.in.EDL)).
		Int("kept", len(p.entries)).
		Msg("edl adjusted")
	return fmt.Sprintf("%d of %d cuts kept", len(p.entries), len(r.in.EDL)), nil
}

// split stream-copies every kept range of the source into its own file. The
// duration is probed again rather than taken from setup.
func (r *run) split(ctx context.Context, p *cutPlan) (string, error) {
	info, err := r.u.d.Video.Probe(ctx, r.in.Source)
	if err != nil {
		return "", err
	}
	if info.Duration <= 0 {
		return "", fmt.Errorf("duration of %s is unknown", r.in.Source)
	}
	p.ranges = edl.Plan(p.entries, info.Duration)
	for i, rg := range p.ranges {
		out := r.temp.Track(tempfiles.Path(r.in.Source, fmt.Sprintf("segment_%d", i), p.ext))
		r.log.Debug().Int("segment", i).Float64("start", rg.Start).Float64("end", rg.End).Msg("extracting segment")
		if err := r.tolerate(r.u.d.Video.Segment(ctx, r.in.Source, rg, out)); err != nil {
			return "", err
		}
		p.segments = append(p.segments, out)
	}
	return fmt.Sprintf("%d segments, %.0fs kept", len(p.ranges), edl.Kept(p.ranges)), nil
}

// fade closes every segment with a fade to black, re-encoding video at the
// source bitrate.
func (r *run) fade(ctx context.Context, p *cutPlan) (string, error) {
	for i, seg := range p.segments {
		info, err := r.u.d.Video.Probe(ctx, seg)
		if err != nil {
			return "", err
		}
		start := FadeStart(info.Duration)
		out := r.temp.Track(tempfiles.Path(r.in.Source, fmt.Sprintf("segment_%d_fadeout", i), p.ext))
		if err := r.tolerate(r.u.d.Video.FadeOut(ctx, seg, start, p.bitrate, out)); err != nil {
			return "", err
		}
		p.faded = append(p.faded, out)
	}
	return fmt.Sprintf("%d segments faded", len(p.faded)), nil
}

// FadeStart places a fixed-length fade so it ends at the segment's tail.
func FadeStart(duration float64) float64 {
	st := math.Round(duration - 1)
	if st < 0 {
		return 0
	}
	return st
}

func (r *run) concat(ctx context.Context, p *cutPlan) (string, error) {
	list := r.temp.Track(tempfiles.Path(r.in.Source, "filelist", ".txt"))
	if err := os.WriteFile(list, []byte(ConcatList(list, p.faded)), 0o644); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}
	p.concat = r.temp.Track(tempfiles.Path(r.in.Source, "concat", p.ext))
	if err := r.tolerate(r.u.d.Video.Concat(ctx, list, p.concat)); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d files joined", len(p.faded)), nil
}

// ConcatList renders a concat demuxer script. Paths are written relative to
// the list's directory with forward slashes, single-quoted.
func ConcatList(listPath string, files []string) string {
	dir := filepath.Dir(listPath)
	var b strings.Builder
	for _, f := range files {
		if rel, err := filepath.Rel(dir, f); err == nil {
			f = rel
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(filepath.ToSlash(f), "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

// trim drops the lead and end padding from the joined program.
func (r *run) trim(ctx context.Context, p *cutPlan) (string, error) {
	info, err := r.u.d.Video.Probe(ctx, p.concat)
	if err != nil {
		return "", err
	}
	length := info.Duration - r.in.EndSeconds - r.in.LeadSeconds
	if length <= 0 {
		return "", fmt.Errorf("%w: joined duration %.2fs, lead %.2fs, end %.2fs",
			ErrTrimTooShort, info.Duration, r.in.LeadSeconds, r.in.EndSeconds)
	}
	p.final = tempfiles.Base(r.in.Source) + "_final" + p.ext
	if !r.in.NoMerge {
		r.temp.Track(p.final)
	}
	if err := r.tolerate(r.u.d.Video.Trim(ctx, p.concat, r.in.LeadSeconds, length, p.final)); err != nil {
		return "", err
	}
	return fmt.Sprintf("%.0fs program", length), nil
}
