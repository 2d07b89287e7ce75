package cmd

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/WeirdyBenji/librohc/internal/log"
	"github.com/WeirdyBenji/librohc/internal/rohc/decomp"
)

var (
	strictFlag bool
	outputMode string
)

var decompressCmd = &cobra.Command{
	Use:   "decompress <capture.pcap|frames.hex>",
	Short: "Decompress a capture of ROHC frames",
	Long: `Decompress reads ROHC frames from a pcap file (the link-layer payload of
each packet is one ROHC frame) or from a hex dump file (one frame per line,
'#' starts a comment) and runs them through one decompressor channel.

Output is a YAML summary per frame, or the raw reconstructed IP packets.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputMode != "yaml" && outputMode != "raw" {
			return fmt.Errorf("invalid --output %q (must be yaml or raw)", outputMode)
		}

		frames, err := readFrames(args[0])
		if err != nil {
			return err
		}

		strict := cfg.ProfileStrict("ip") || strictFlag
		d := decomp.New(decomp.Options{
			Strict: strict,
			Logger: log.GetLogger(),
		})

		return dumpFrames(cmd.OutOrStdout(), d, frames)
	},
}

func init() {
	decompressCmd.Flags().BoolVar(&strictFlag, "strict", false,
		"treat recoverable malformed-packet diagnostics as fatal")
	decompressCmd.Flags().StringVarP(&outputMode, "output", "o", "yaml",
		"output format: yaml summaries or raw IP packets")
}

// frameSummary is the per-frame YAML record.
type frameSummary struct {
	Frame   int    `yaml:"frame"`
	InLen   int    `yaml:"in_len"`
	OutLen  int    `yaml:"out_len,omitempty"`
	SrcIP   string `yaml:"src_ip,omitempty"`
	DstIP   string `yaml:"dst_ip,omitempty"`
	IPID    uint16 `yaml:"ip_id,omitempty"`
	Error   string `yaml:"error,omitempty"`
	Dropped bool   `yaml:"dropped,omitempty"`
}

// readFrames loads ROHC frames from a pcap or hex dump file.
func readFrames(path string) ([][]byte, error) {
	if strings.HasSuffix(path, ".pcap") || strings.HasSuffix(path, ".pcapng") {
		return readPcapFrames(path)
	}
	return readHexFrames(path)
}

// readPcapFrames treats the link-layer payload of each captured packet as
// one ROHC frame; on Ethernet captures the frame follows the MAC header.
func readPcapFrames(path string) ([][]byte, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pcap file %s: %w", path, err)
	}
	defer handle.Close()

	ethernet := handle.LinkType() == layers.LinkTypeEthernet

	var frames [][]byte
	for {
		data, _, err := handle.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read packet: %w", err)
		}
		if ethernet {
			if len(data) <= 14 {
				continue
			}
			data = data[14:]
		}
		frame := make([]byte, len(data))
		copy(frame, data)
		frames = append(frames, frame)
	}
	return frames, nil
}

// readHexFrames parses one hex-encoded frame per line.
func readHexFrames(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var frames [][]byte
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if idx := strings.IndexByte(text, '#'); idx >= 0 {
			text = text[:idx]
		}
		text = strings.Map(func(r rune) rune {
			if r == ' ' || r == '\t' {
				return -1
			}
			return r
		}, text)
		if text == "" {
			continue
		}
		frame, err := hex.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("invalid hex on line %d: %w", line, err)
		}
		frames = append(frames, frame)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return frames, nil
}

// dumpFrames runs the frames through the decompressor and writes the
// requested output.
func dumpFrames(w io.Writer, d *decomp.Decompressor, frames [][]byte) error {
	logger := log.GetLogger()

	var enc *yaml.Encoder
	if outputMode == "yaml" {
		enc = yaml.NewEncoder(w)
		defer enc.Close()
	}

	for i, frame := range frames {
		out, err := d.Decompress(frame)

		if outputMode == "raw" {
			if err != nil {
				logger.WithError(err).Warnf("frame %d dropped", i)
				continue
			}
			if _, err := w.Write(out); err != nil {
				return err
			}
			continue
		}

		summary := frameSummary{Frame: i, InLen: len(frame)}
		if err != nil {
			summary.Error = err.Error()
			summary.Dropped = true
		} else {
			summary.OutLen = len(out)
			if ip := parseIPv4(out); ip != nil {
				summary.SrcIP = ip.SrcIP.String()
				summary.DstIP = ip.DstIP.String()
				summary.IPID = ip.Id
			}
		}
		if err := enc.Encode(summary); err != nil {
			return err
		}
	}
	return nil
}

// parseIPv4 decodes the leading IPv4 header of a reconstructed packet.
func parseIPv4(data []byte) *layers.IPv4 {
	var ip layers.IPv4
	if err := ip.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return nil
	}
	return &ip
}
