package config

// Default is written when no configuration file exists.
const Default = `# skylapse configuration

files:
  # Directory containing one folder per day of images.
  source_dir: /srv/skycam/images
  # Where to put the videos. Empty means the current directory.
  output_dir: ""
  # Go time layout for the video name, formatted with the window start.
  # The extension is replaced with .mp4 (or .avi for the windows preset).
  output_name: 2006-01-02.mp4
  # Replace existing videos instead of skipping the day.
  overwrite: false
  # Go time layout for the per-frame brightness CSV. Empty to skip it.
  metric_name: 2006-01-02.csv
  # Gray level (0-255) counted as bright sky by the metric.
  metric_level: 200

formatting:
  # Go time layouts for image and day folder names.
  image_layout: 2006-01-02--15-04-05.jpg
  folder_layout: "2006-01-02"
  # Where capture times come from: name or exif.
  time_source: name

video:
  # Frames per second of the output video.
  framerate: 60
  # Length of the output video in seconds.
  duration: 10
  # Percentage of the source resolution.
  resolution: 50

codec:
  # Maximum compatibility with Windows Media Player. Frame rate and the
  # codec options below are ignored.
  windows_preset: false
  # Constant time between frames, even when that repeats images.
  linear_time: false
  # h264 or h265.
  codec: h264
  # Constant rate factor, 0-51. Higher is worse; 18-28 is sensible.
  quality: 23
  # 0 (fastest) to 8 (smallest). No effect on quality.
  efficiency: 5
  # Videos rendered in parallel, and ffmpeg threads per video.
  threads: 4
  # Extra ffmpeg output arguments, without the leading dash.
  custom: {}

timing:
  # Either dates (2006-01-02) or negative offsets from today; -1 is yesterday.
  start_day: "-1"
  end_day: "-1"
  max_days: 10

solar:
  latitude: 39.138306
  longitude: -77.219444
  # Meters above sea level.
  altitude: 140
  time_zone: America/New_York
  # Sun elevation in degrees that starts and ends each video.
  min_elevation: -5

sensor:
  # SQLite database with readings to chart. Empty disables the chart.
  # SKYLAPSE_SENSOR_DSN overrides this.
  dsn: ""
  table: ws_1_analogtable_0037
  column: "19_refcell1_wm2"
  time_column: time_stamp

overlay:
  enabled: true
  width: 640
  height: 200
  units: W/m²
`
