package git

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
	"sort"

	"github.com/corevcs/mgit/ginternals"
	"github.com/corevcs/mgit/ginternals/packfile"
	"github.com/corevcs/mgit/ginternals/pktline"
	"golang.org/x/xerrors"
)

// remoteRef is a single advertised reference, as parsed from the
// service's info/refs response (spec §4.7 step 3).
type remoteRef struct {
	name   string
	id     ginternals.Oid
	peeled ginternals.Oid // zero if the ref wasn't peeled
}

// Clone discovers url's refs over smart HTTP, requests and decodes the
// resulting pack, and checks out HEAD into dest (spec §4.7).
func Clone(url, dest string) (*Repository, error) {
	repo, err := InitRepository(dest, Options{})
	if err != nil {
		return nil, xerrors.Errorf("could not initialize destination repository: %w", err)
	}

	refs, err := discoverRefs(url)
	if err != nil {
		return nil, xerrors.Errorf("could not discover refs: %w", err)
	}
	if len(refs) == 0 {
		return repo, nil
	}

	wants := wantedOids(refs)
	if err := fetchPack(repo, url, wants); err != nil {
		return nil, xerrors.Errorf("could not fetch pack: %w", err)
	}

	return finishClone(repo, refs[0])
}

// finishClone implements spec §4.7 step 8: checkout the first
// advertised ref's commit (which must be named HEAD) and point the
// local HEAD at it.
func finishClone(repo *Repository, head remoteRef) (*Repository, error) {
	if head.name != ginternals.Head {
		return nil, xerrors.Errorf("remote's first advertised ref is %q, not HEAD: %w", head.name, ginternals.ErrNoHead)
	}

	commitObj, err := repo.Object(head.id)
	if err != nil {
		return nil, xerrors.Errorf("could not read HEAD commit %s: %w", head.id, err)
	}
	commit, err := commitObj.AsCommit()
	if err != nil {
		return nil, xerrors.Errorf("HEAD %s is not a commit: %w", head.id, err)
	}

	treeObj, err := repo.Object(commit.TreeID())
	if err != nil {
		return nil, xerrors.Errorf("could not read root tree %s: %w", commit.TreeID(), err)
	}
	tree, err := treeObj.AsTree()
	if err != nil {
		return nil, xerrors.Errorf("%s is not a tree: %w", commit.TreeID(), err)
	}

	if err := repo.Checkout(tree, repo.WorkingTreePath()); err != nil {
		return nil, xerrors.Errorf("could not checkout HEAD: %w", err)
	}
	if err := repo.SetHEAD(head.id); err != nil {
		return nil, xerrors.Errorf("could not update HEAD: %w", err)
	}

	return repo, nil
}

// discoverRefs performs the GET described by spec §4.7 step 1-4.
func discoverRefs(url string) ([]remoteRef, error) {
	resp, err := http.Get(fmt.Sprintf("%s/info/refs?service=git-upload-pack", url))
	if err != nil {
		return nil, xerrors.Errorf("could not reach %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, xerrors.Errorf("info/refs returned %s: %w", resp.Status, ginternals.ErrProtocolFraming)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-git-upload-pack-advertisement" {
		return nil, xerrors.Errorf("unexpected content-type %q: %w", ct, ginternals.ErrProtocolFraming)
	}

	s := pktline.NewScanner(bufio.NewReader(resp.Body))

	data, _, err := s.Next()
	if err != nil {
		return nil, xerrors.Errorf("could not read service announcement: %w", err)
	}
	if string(bytes.TrimRight(data, "\n")) != "# service=git-upload-pack" {
		return nil, xerrors.Errorf("unexpected service announcement %q: %w", data, ginternals.ErrProtocolFraming)
	}
	if _, flush, err := s.Next(); err != nil {
		return nil, xerrors.Errorf("could not read flush after service announcement: %w", err)
	} else if !flush {
		return nil, xerrors.Errorf("expected flush after service announcement: %w", ginternals.ErrProtocolFraming)
	}

	var refs []remoteRef
	for {
		data, flush, err := s.Next()
		if err != nil {
			return nil, xerrors.Errorf("could not read ref advertisement: %w", err)
		}
		if flush {
			break
		}

		line := data
		if len(refs) == 0 {
			if i := bytes.IndexByte(line, 0); i >= 0 {
				line = line[:i]
			}
		}
		line = bytes.TrimRight(line, "\n")

		idHex, name, ok := splitRefLine(line)
		if !ok {
			return nil, xerrors.Errorf("malformed ref line %q: %w", data, ginternals.ErrProtocolFraming)
		}

		id, err := ginternals.NewOidFromHex(idHex)
		if err != nil {
			return nil, xerrors.Errorf("invalid ref digest %q: %w", idHex, err)
		}

		if len(refs) == 0 && id == ginternals.NullOid {
			// spec §4.7 step 4: remote advertises no refs.
			return nil, nil
		}

		if peeledName, isPeel := isPeeledRefName(name); isPeel {
			if len(refs) == 0 || refs[len(refs)-1].name != peeledName {
				return nil, xerrors.Errorf("peeled ref %q doesn't follow %q: %w", name, peeledName, ginternals.ErrProtocolFraming)
			}
			refs[len(refs)-1].peeled = id
			continue
		}

		refs = append(refs, remoteRef{name: name, id: id})
	}

	return refs, nil
}

func splitRefLine(line []byte) (idHex, name string, ok bool) {
	i := bytes.IndexByte(line, ' ')
	if i < 0 {
		return "", "", false
	}
	return string(line[:i]), string(line[i+1:]), true
}

func isPeeledRefName(name string) (base string, ok bool) {
	const suffix = "^{}"
	if len(name) <= len(suffix) || name[len(name)-len(suffix):] != suffix {
		return "", false
	}
	return name[:len(name)-len(suffix)], true
}

// wantedOids builds the deduplicated, sorted want-set (spec §4.7
// step 5).
func wantedOids(refs []remoteRef) []ginternals.Oid {
	seen := map[ginternals.Oid]struct{}{}
	var out []ginternals.Oid
	add := func(id ginternals.Oid) {
		if id == ginternals.NullOid {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, ref := range refs {
		add(ref.id)
		add(ref.peeled)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// fetchPack performs the POST and pack decode described by spec §4.7
// steps 6-7.
func fetchPack(repo *Repository, url string, wants []ginternals.Oid) error {
	body := new(bytes.Buffer)
	for _, oid := range wants {
		body.WriteString(pktline.Encode(fmt.Sprintf("want %s\n", oid)))
	}
	body.WriteString(pktline.FlushPkt)
	body.WriteString(pktline.Encode("done\n"))

	resp, err := http.Post(
		fmt.Sprintf("%s/git-upload-pack", url),
		"application/x-git-upload-pack-request",
		body,
	)
	if err != nil {
		return xerrors.Errorf("could not reach %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return xerrors.Errorf("git-upload-pack returned %s: %w", resp.Status, ginternals.ErrProtocolFraming)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-git-upload-pack-result" {
		return xerrors.Errorf("unexpected content-type %q: %w", ct, ginternals.ErrProtocolFraming)
	}

	s := pktline.NewScanner(resp.Body)
	data, _, err := s.Next()
	if err != nil {
		return xerrors.Errorf("could not read NAK: %w", err)
	}
	if string(data) != "NAK\n" {
		return xerrors.Errorf("expected NAK, got %q: %w", data, ginternals.ErrProtocolFraming)
	}

	if _, _, err := s.Next(); !xerrors.Is(err, pktline.ErrPackStream) {
		if err == nil {
			return xerrors.Errorf("expected PACK stream after NAK: %w", ginternals.ErrProtocolFraming)
		}
		return xerrors.Errorf("could not locate PACK stream: %w", err)
	}

	if _, err := packfile.Decode(repo.dotGit, s.PackReader()); err != nil {
		return xerrors.Errorf("could not decode pack: %w", err)
	}
	return nil
}
