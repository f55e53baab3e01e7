// Package zygo reads and writes Zygo interferometer data files: the
// binary .dat format and the ASCII export format.
//
// The binary header is effectively an ABI: 834 bytes of heterogeneous,
// non-contiguous fields mixing byte orders, with reserved gaps between
// them. The field table below drives both decode and encode so the two
// stay symmetric; re-written files remain readable by the vendor's own
// software.
package zygo

import (
	"github.com/robert-malhotra/go-metrology/internal/binary"
	"github.com/robert-malhotra/go-metrology/internal/layout"
)

// HeaderSize is the fixed byte length of the binary header.
const HeaderSize = 834

// MagicNumber opens every Zygo binary file.
const MagicNumber = 0x881B036F

// DefaultWavelength is the HeNe wavelength in meters, exactly as vendor
// files carry it.
const DefaultWavelength = 6.327999813038332e-07

// flashPhaseCDMaskDefault is a denormal single preserved verbatim from
// vendor files; its meaning is not documented.
const flashPhaseCDMaskDefault = 9.139576869988608e-40

func u8(name string, lo int, def int) layout.Field {
	return layout.Field{Name: name, Kind: layout.U8, Lo: lo, Hi: lo + 1, Default: def}
}

func u16be(name string, lo int, def int) layout.Field {
	return layout.Field{Name: name, Kind: layout.U16, Order: binary.Big, Lo: lo, Hi: lo + 2, Default: def}
}

func u16le(name string, lo int, def int) layout.Field {
	return layout.Field{Name: name, Kind: layout.U16, Order: binary.Little, Lo: lo, Hi: lo + 2, Default: def}
}

func u32be(name string, lo int, def int) layout.Field {
	return layout.Field{Name: name, Kind: layout.U32, Order: binary.Big, Lo: lo, Hi: lo + 4, Default: def}
}

func u32le(name string, lo int, def int) layout.Field {
	return layout.Field{Name: name, Kind: layout.U32, Order: binary.Little, Lo: lo, Hi: lo + 4, Default: def}
}

func f32be(name string, lo int, def float64) layout.Field {
	return layout.Field{Name: name, Kind: layout.F32, Order: binary.Big, Lo: lo, Hi: lo + 4, Default: def}
}

func f32le(name string, lo int, def float64) layout.Field {
	return layout.Field{Name: name, Kind: layout.F32, Order: binary.Little, Lo: lo, Hi: lo + 4, Default: def}
}

func str(name string, lo, hi int, def string) layout.Field {
	return layout.Field{Name: name, Kind: layout.String, Lo: lo, Hi: hi, Default: def}
}

func char(name string, lo int) layout.Field {
	return layout.Field{Name: name, Kind: layout.Char, Lo: lo, Hi: lo + 1, Default: " "}
}

func pad(lo, hi int) layout.Field {
	return layout.Field{Name: "", Kind: layout.Pad, Lo: lo, Hi: hi}
}

// HeaderLayout is the full field table of the 834-byte binary header.
// Offsets, byte orders, and defaults follow the vendor convention;
// reserved regions are explicit pad ranges.
var HeaderLayout = &layout.Layout{
	Size:    HeaderSize,
	PadByte: ' ',
	Fields: []layout.Field{
		u32be("magic_number", 0, MagicNumber),
		u16be("header_format", 4, 1),
		u32be("header_size", 6, HeaderSize),
		u16be("swtype", 10, 1),
		str("swdate", 12, 42, ""),
		u16be("swmaj", 42, 0),
		u16be("swmin", 44, 0),
		u16be("swpatch", 46, 0),
		u16be("ac_x", 48, 0),
		u16be("ac_y", 50, 0),
		u16be("ac_width", 52, 0),
		u16be("ac_height", 54, 0),
		u16be("ac_n_buckets", 56, 0),
		u16be("ac_range", 58, 0),
		u32be("ac_n_bytes", 60, 0),
		u16be("cn_x", 64, 0),
		u16be("cn_y", 66, 0),
		u16be("cn_width", 68, 0),
		u16be("cn_height", 70, 0),
		u32be("cn_n_bytes", 72, 0),
		u32be("timestamp", 76, 0),
		str("comment", 80, 162, ""),
		u16be("source", 162, 0),
		f32be("scale_factor", 164, 0.5),
		f32be("wavelength", 168, DefaultWavelength),
		f32be("numerical_aperture", 172, 0),
		f32be("obliquity_factor", 176, 1),
		f32be("magnification", 180, 0),
		f32be("lateral_resolution", 184, 1),
		u16be("acq_type", 188, 0),
		u16be("intensity_average_count", 190, 0),
		u16be("ramp_cal", 192, 0),
		u16be("sfac_limit", 194, 3),
		u16be("ramp_gain", 196, 1753),
		f32be("part_thickness", 198, 0),
		u16be("sw_llc", 202, 1),
		f32be("target_range", 204, 0.1),
		u16le("rad_crv_measure_seq", 208, 0),
		u32be("min_mod", 210, 17),
		u32be("min_mod_count", 214, 50),
		u16be("phase_res", 218, 1),
		u32be("min_area", 220, 20),
		u16be("discontinuity_action", 224, 1),
		f32be("discontinuity_filter", 226, 60),
		u16be("connect_order", 230, 0),
		u16be("sign", 232, 0),
		u16be("camera_width", 234, 0),
		u16be("camera_height", 236, 0),
		u16be("sys_type", 238, 23),
		u16be("sys_board", 240, 0),
		u16be("sys_serial", 242, 0),
		u16be("sys_inst_id", 244, 0),
		str("obj_name", 246, 258, ""),
		str("part_name", 258, 298, ""),
		u16be("codev_type", 298, 0),
		u16be("phase_avg_count", 300, 1),
		u16be("sub_sys_err", 302, 0),
		pad(304, 320),
		str("part_sn", 320, 360, ""),
		f32be("refractive_index", 360, 1),
		u16be("remove_tilt", 364, 0),
		u16be("remove_fringes", 366, 0),
		u32be("max_area", 368, 9999999),
		u16be("setup_type", 372, 0),
		u16be("wrapped", 374, 0),
		f32be("pre_connect_filter", 376, 0),
		pad(380, 386),
		f32be("wavelength_in_1", 386, DefaultWavelength),
		f32be("wavelength_in_2", 390, DefaultWavelength),
		f32be("wavelength_in_3", 394, DefaultWavelength),
		str("wavelength_select", 398, 406, "1"),
		u16be("fda_res", 406, 0),
		str("scan_description", 408, 428, ""),
		u16be("n_fiducials", 428, 0),
		f32be("fiducial_1", 430, 0),
		f32be("fiducial_2", 434, 0),
		f32be("fiducial_3", 438, 0),
		f32be("fiducial_4", 442, 0),
		f32be("fiducial_5", 446, 0),
		f32be("fiducial_6", 450, 0),
		f32be("fiducial_7", 454, 0),
		f32be("fiducial_8", 458, 0),
		f32be("fiducial_9", 462, 0),
		f32be("fiducial_10", 466, 0),
		f32be("fiducial_11", 470, 0),
		f32be("fiducial_12", 474, 0),
		f32be("fiducial_13", 478, 0),
		f32be("fiducial_14", 482, 0),
		f32be("pixel_width", 486, 7.4e-6),
		f32be("pixel_height", 490, 7.4e-6),
		f32be("exit_pupil_diameter", 494, 0),
		f32be("light_level_percent", 498, 55),
		u32le("coords_state", 502, 0),
		f32le("coords_x", 506, 0),
		f32le("coords_y", 510, 0),
		f32le("coords_z", 514, 0),
		f32le("coords_a", 518, 0),
		f32le("coords_b", 522, 0),
		f32le("coords_c", 526, 0),
		u16le("cohrence_mode", 530, 0),
		u16le("surface_filter", 532, 0),
		str("sys_err_filename", 534, 562, ""),
		// The vendor byte image is a space-padded body with a NUL tail.
		str("zoom_descr", 562, 570, "   1X \x00\x00"),
		f32le("alpha_part", 570, 0),
		f32le("beta_part", 574, 0),
		f32le("dist_part", 578, 0),
		u16le("cam_split_loc_x", 582, 0),
		u16le("cam_split_loc_y", 584, 0),
		u16le("cam_split_trans_x", 586, 0),
		u16le("cam_split_trans_y", 588, 0),
		str("material_a", 590, 614, ""),
		str("material_b", 614, 638, ""),
		pad(638, 642),
		f32le("dmi_center_x", 642, 0),
		f32le("dmi_center_y", 646, 0),
		u16le("sph_distortion_correction", 650, 0),
		pad(652, 654),
		f32le("sph_dist_part_na", 654, 0),
		f32le("sph_dist_part_radius", 658, 0),
		f32le("sph_dist_cal_na", 662, 0),
		f32le("sph_dist_cal_radius", 666, 0),
		u16le("surface_type", 670, 0),
		u16le("ac_surface_type", 672, 0),
		f32le("z_pos", 674, 0),
		f32le("power_mul", 678, 0),
		f32le("focus_mul", 682, 0),
		f32le("roc_focus_cal_factor", 686, 0),
		f32le("roc_power_cal_factor", 690, 0),
		f32le("ftp_pos_left", 694, 0),
		f32le("ftp_pos_right", 698, 0),
		f32le("ftp_pos_pitch", 702, 0),
		f32le("ftp_pos_roll", 706, 0),
		f32le("min_mod_percent", 710, 7),
		u32le("max_intens", 714, 0),
		u16le("ring_of_fire", 718, 0),
		pad(720, 721),
		char("rc_orientation", 721),
		f32le("rc_distance", 722, 0),
		f32le("rc_angle", 726, 0),
		f32le("rc_diameter", 730, 0),
		u16be("rem_fringes_mode", 734, 0),
		pad(736, 737),
		u8("ftpsi_phase_res", 737, 0),
		u16le("frames_acquired", 738, 0),
		u16le("cavity_type", 740, 0),
		f32le("cam_frame_rate", 742, 0),
		f32le("tune_range", 746, 0),
		u16le("cal_pix_x", 750, 0),
		u16le("cal_pix_y", 752, 0),
		pad(754, 758),
		f32le("test_cal_pts_1", 758, 0),
		f32le("test_cal_pts_2", 762, 0),
		f32le("test_cal_pts_3", 766, 0),
		f32le("test_cal_pts_4", 770, 0),
		f32le("ref_cal_pts_1", 774, 0),
		f32le("ref_cal_pts_2", 778, 0),
		f32le("ref_cal_pts_3", 782, 0),
		f32le("ref_cal_pts_4", 786, 0),
		f32le("test_cal_pix_opd", 790, 0),
		f32le("test_ref_pix_opd", 794, 0),
		f32le("flash_phase_cd_mask", 798, flashPhaseCDMaskDefault),
		f32le("flash_phase_alias_mask", 802, 0),
		f32le("flash_phase_filter", 806, 0),
		u8("scan_direction", 810, 0),
		pad(811, 814),
		u16le("ftpsi_res_factor", 814, 0),
		pad(816, HeaderSize),
	},
}
