package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-metrology/codev"
	"github.com/robert-malhotra/go-metrology/metrology"
	"github.com/robert-malhotra/go-metrology/zygo"
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert <in.dat> <out>",
	Short: "Convert an interferometer .dat file to another format",
	Long: `Read an interferometer .dat measurement and write it back out as a
grid-sag text export (--to grd) or an ASCII interferogram (--to asc).

Example:
  metro convert measurement.dat surface.grd --to grd`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		to, _ := cmd.Flags().GetString("to")

		m, err := zygo.ReadDatFile(args[0], metrology.BucketAverage)
		if err != nil {
			return err
		}
		rows, cols := m.Phase.Dims()
		logger.Info("decoded measurement",
			zap.String("file", args[0]),
			zap.Int("rows", rows),
			zap.Int("cols", cols))

		// Header fields carry meters; the writers take mm and um.
		dxMM := float64(m.Meta["lateral_resolution"].(float32)) * 1e3
		wvlUm := float64(m.Meta["wavelength"].(float32)) * 1e6

		switch to {
		case "grd":
			return codev.WriteGridIntFile(args[1], m.Phase, codev.KindSurface, "converted from "+args[0])
		case "asc":
			return zygo.WriteASCIIFile(args[1], m.Phase, dxMM, wvlUm)
		default:
			return fmt.Errorf("unknown output format %q (want grd or asc)", to)
		}
	},
}

func init() {
	convertCmd.Flags().String("to", "grd", "output format: grd or asc")
	rootCmd.AddCommand(convertCmd)
}
