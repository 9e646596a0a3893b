package tarball

import (
	"archive/tar"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/dsnet/compress/bzip2"
	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/release"
)

type member struct {
	rel  string
	info fs.FileInfo
}

// writeArchive writes src as a bzip2-compressed tar with every member
// below root/. Members are sorted and share one timestamp, so the same
// tree always yields the same archive.
func writeArchive(src, dest, root string, modTime time.Time) (err error) {
	var members []member
	err = filepath.Walk(src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		members = append(members, member{rel: filepath.ToSlash(rel), info: info})
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "scanning tree", goerr.V("path", src))
	}
	sort.Slice(members, func(i, j int) bool { return members[i].rel < members[j].rel })

	f, err := os.Create(dest)
	if err != nil {
		return goerr.Wrap(err, "creating archive", goerr.V("path", dest))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = goerr.Wrap(cerr, "closing archive", goerr.V("path", dest))
		}
	}()

	bw, err := bzip2.NewWriter(f, &bzip2.WriterConfig{Level: bzip2.BestCompression})
	if err != nil {
		return goerr.Wrap(err, "starting bzip2 stream")
	}
	tw := tar.NewWriter(bw)

	if err := writeDir(tw, root+"/", modTime); err != nil {
		return err
	}
	for _, m := range members {
		if err := writeMember(tw, src, root, m, modTime); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return goerr.Wrap(err, "finishing tar stream", goerr.V("path", dest))
	}
	if err := bw.Close(); err != nil {
		return goerr.Wrap(err, "finishing bzip2 stream", goerr.V("path", dest))
	}
	return nil
}

func writeDir(tw *tar.Writer, name string, modTime time.Time) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0755,
		ModTime:  modTime,
		Typeflag: tar.TypeDir,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return goerr.Wrap(err, "writing tar header", goerr.V("name", name))
	}
	return nil
}

func writeMember(tw *tar.Writer, src, root string, m member, modTime time.Time) error {
	name := path.Join(root, m.rel)
	mode := m.info.Mode()

	switch {
	case mode.IsDir():
		return writeDir(tw, name+"/", modTime)
	case mode&fs.ModeSymlink != 0:
		link, err := os.Readlink(filepath.Join(src, filepath.FromSlash(m.rel)))
		if err != nil {
			return goerr.Wrap(err, "reading symlink", goerr.V("name", m.rel))
		}
		hdr := &tar.Header{Name: name, Linkname: link, Mode: 0777, ModTime: modTime, Typeflag: tar.TypeSymlink}
		if err := tw.WriteHeader(hdr); err != nil {
			return goerr.Wrap(err, "writing tar header", goerr.V("name", name))
		}
		return nil
	case !mode.IsRegular():
		return nil
	}

	perm := int64(0644)
	if mode.Perm()&0111 != 0 {
		perm = 0755
	}
	hdr := &tar.Header{
		Name:     name,
		Size:     m.info.Size(),
		Mode:     perm,
		ModTime:  modTime,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return goerr.Wrap(err, "writing tar header", goerr.V("name", name))
	}

	f, err := os.Open(filepath.Join(src, filepath.FromSlash(m.rel)))
	if err != nil {
		return goerr.Wrap(err, "opening archive member", goerr.V("name", m.rel))
	}
	defer f.Close()
	if _, err := io.Copy(tw, f); err != nil {
		return goerr.Wrap(err, "writing archive member", goerr.V("name", m.rel))
	}
	return nil
}

// Checksums computes the md5, sha1 and sha256 digests of the file at p.
func Checksums(p string) (release.ChecksumRecord, error) {
	f, err := os.Open(p)
	if err != nil {
		return release.ChecksumRecord{}, goerr.Wrap(err, "opening file for checksums", goerr.V("path", p))
	}
	defer f.Close()

	hashes := map[string]hash.Hash{
		release.DigestMD5:    md5.New(),
		release.DigestSHA1:   sha1.New(),
		release.DigestSHA256: sha256.New(),
	}
	writers := make([]io.Writer, 0, len(hashes))
	for _, h := range hashes {
		writers = append(writers, h)
	}
	if _, err := io.Copy(io.MultiWriter(writers...), f); err != nil {
		return release.ChecksumRecord{}, goerr.Wrap(err, "hashing file", goerr.V("path", p))
	}

	rec := release.ChecksumRecord{File: filepath.Base(p), Digests: make(map[string]string, len(hashes))}
	for name, h := range hashes {
		rec.Digests[name] = hex.EncodeToString(h.Sum(nil))
	}
	return rec, nil
}
