package compare

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// missing fills the columns of a section that was not computed.
const missing = "None"

var baseColumns = []string{
	"newick1", "newick2", "taxa_only", "topo_only",
	"#_taxa1", "#_taxa2", "correct_taxa_ratio", "#_equal_length", "#_unequal_length",
	"mean_ham_dist", "mean_ham_ratio", "mean_edit_dist", "mean_edit_dist_total",
	"mean_edit_ratio", "mean_edit_ratio_total",
	"rf_dist", "max_rf_dist", "rf_ratio",
	"#_orig_edges", "#_gen_edges", "#_common_edges", "#_missing_edges", "correct_edge_ratio",
	"divergence", "mean_length_diff",
}

const (
	taxaColumns     = 11
	topologyColumns = 8
)

// Params are extra columns appended to every entry, such as the generator parameters of a bundle.
type Params struct {
	Header []string
	Values []string
}

// ReadParams reads the header and the first entry of a parameter TSV.
func ReadParams(r io.Reader) (*Params, error) {
	reader := newTSVReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "unable to read params header")
	}

	values, err := reader.Read()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "unable to read params entry")
	}

	if len(values) > len(header) {
		return nil, errors.Errorf("params entry has %d columns, header has %d", len(values), len(header))
	}

	return &Params{Header: header, Values: values}, nil
}

// ReadParamsFile reads a parameter TSV from path.
func ReadParamsFile(path string) (*Params, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open params %s", path)
	}
	defer f.Close()

	return ReadParams(f)
}

// Header returns the TSV header.
func Header(params *Params) []string {
	res := append([]string{}, baseColumns...)
	if params != nil {
		res = append(res, params.Header...)
	}

	return res
}

// Entry returns the TSV entry of a report.
func Entry(rep *Report, params *Params) []string {
	res := make([]string, 0, len(baseColumns))
	res = append(res, rep.Original, rep.Generated, strconv.FormatBool(rep.TaxaOnly), strconv.FormatBool(rep.TopologyOnly))

	if taxa := rep.Taxa; taxa != nil {
		res = append(res,
			strconv.Itoa(taxa.OriginalCount), strconv.Itoa(taxa.GeneratedCount),
			formatFloat(taxa.CorrectRatio),
			strconv.Itoa(taxa.EqualLength), strconv.Itoa(taxa.UnequalLength),
			formatFloat(taxa.MeanHamming), formatFloat(taxa.MeanHammingRatio),
			formatFloat(taxa.MeanEdit), formatFloat(taxa.MeanEditTotal),
			formatFloat(taxa.MeanEditRatio), formatFloat(taxa.MeanEditRatioTotal),
		)
	} else {
		res = appendMissing(res, taxaColumns)
	}

	if topo := rep.Topology; topo != nil {
		res = append(res,
			strconv.Itoa(topo.RF), strconv.Itoa(topo.MaxRF), formatFloat(topo.RFRatio),
			strconv.Itoa(topo.OriginalEdges), strconv.Itoa(topo.GeneratedEdges),
			strconv.Itoa(topo.CommonEdges), strconv.Itoa(topo.MissingEdges),
			formatFloat(topo.CorrectEdgeRatio),
		)
	} else {
		res = appendMissing(res, topologyColumns)
	}

	res = append(res, formatFloat(round4(rep.Divergence())))

	if rep.Distances != nil {
		res = append(res, formatFloat(rep.Distances.MeanAbsDiff))
	} else {
		res = append(res, missing)
	}

	if params != nil {
		res = append(res, params.Values...)
		res = appendMissing(res, len(params.Header)-len(params.Values))
	}

	return res
}

// WriteTSV writes the entries of reports, preceded by the header when header is true.
func WriteTSV(w io.Writer, header bool, params *Params, reports ...*Report) error {
	writer := csv.NewWriter(w)
	writer.Comma = '\t'

	if header {
		err := writer.Write(Header(params))
		if err != nil {
			return errors.Wrap(err, "unable to write header")
		}
	}

	for _, rep := range reports {
		err := writer.Write(Entry(rep, params))
		if err != nil {
			return errors.Wrap(err, "unable to write entry")
		}
	}

	writer.Flush()

	return errors.Wrap(writer.Error(), "unable to flush tsv")
}

// AppendTSV appends the entries of reports to the TSV file at path. The header is written only when
// the file does not exist yet or is empty.
func AppendTSV(path string, params *Params, reports ...*Report) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "unable to open %s", path)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()

		return errors.Wrapf(err, "unable to stat %s", path)
	}

	err = WriteTSV(f, info.Size() == 0, params, reports...)
	if err != nil {
		f.Close()

		return errors.Wrapf(err, "unable to append to %s", path)
	}

	return errors.Wrapf(f.Close(), "unable to close %s", path)
}

func newTSVReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	return reader
}

func appendMissing(res []string, n int) []string {
	for i := 0; i < n; i++ {
		res = append(res, missing)
	}

	return res
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
